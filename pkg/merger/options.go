package merger

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

// DefaultIdentifier is the registry name written into merged headers and summaries.
const DefaultIdentifier = "nro"

// Recorder receives per-category merge measurements.
type Recorder interface {
	ObserveMerge(kind records.Kind, in, out int, elapsed time.Duration)
}

type options struct {
	resolver   *resolver.Resolver
	clock      clock.Clock
	identifier string
	version    string
	recorder   Recorder
}

func defaultOptions() *options {
	return &options{
		clock:      clock.New(),
		identifier: DefaultIdentifier,
		version:    records.DefaultVersion,
	}
}

// Option is a function that configures a Merger.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.resolver == nil {
		if o.resolver, err = resolver.New(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithResolver sets the resolver that settles overlapping claims.
func WithResolver(r *resolver.Resolver) Option {
	return func(o *options) error {
		if r == nil {
			return &errors.ValidationError{Field: "resolver", Message: "cannot be nil"}
		}
		o.resolver = r
		return nil
	}
}

// WithClock sets the time source used for header dates and timings.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.clock = c
		return nil
	}
}

// WithIdentifier sets the registry name of the merged dataset.
func WithIdentifier(id string) Option {
	return func(o *options) error {
		if id == "" {
			return &errors.ValidationError{Field: "identifier", Message: "cannot be empty"}
		}
		o.identifier = id
		return nil
	}
}

// WithVersion sets the format version written in the header.
func WithVersion(version string) Option {
	return func(o *options) error {
		if version == "" {
			return &errors.ValidationError{Field: "version", Message: "cannot be empty"}
		}
		o.version = version
		return nil
	}
}

// WithRecorder reports merge measurements to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) error {
		o.recorder = r
		return nil
	}
}
