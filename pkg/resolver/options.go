package resolver

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
)

// DefaultPriority is the registry order used when none is configured.
var DefaultPriority = []string{"apnic", "afrinic", "arin", "ripencc", "lacnic", "iana"}

// DefaultSourceOrder ranks provenances when two records come from the same registry.
var DefaultSourceOrder = []records.Source{records.SourceIANA, records.SourceStats, records.SourceSwap}

// Observer is notified once for every conflict that gets logged.
type Observer interface {
	Conflict(kind records.Kind)
}

type options struct {
	priority    []string
	sourceOrder []records.Source
	suppressed  []records.Source
	logger      *zerolog.Logger
	observer    Observer
}

func defaultOptions() *options {
	return &options{
		priority:    DefaultPriority,
		sourceOrder: DefaultSourceOrder,
		suppressed:  []records.Source{records.SourceSwap},
	}
}

// Option is a function that configures a Resolver.
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
	return defaultOptions().apply(opts...)
}

// WithPriority sets the registry priority order, highest priority first.
func WithPriority(registries ...string) Option {
	return func(o *options) error {
		if len(registries) == 0 {
			return &errors.ValidationError{Field: "priority", Message: "cannot be empty"}
		}
		seen := make(map[string]bool, len(registries))
		for _, r := range registries {
			if r == "" {
				return &errors.ValidationError{Field: "priority", Value: registries, Message: "contains an empty registry"}
			}
			if seen[r] {
				return &errors.ValidationError{Field: "priority", Value: r, Message: "listed more than once"}
			}
			seen[r] = true
		}
		o.priority = append([]string(nil), registries...)
		return nil
	}
}

// WithSourceOrder sets the provenance order used to break ties within a registry.
func WithSourceOrder(sources ...records.Source) Option {
	return func(o *options) error {
		o.sourceOrder = append([]records.Source(nil), sources...)
		return nil
	}
}

// WithSuppressed sets the provenances whose conflicts are never logged.
// Passing none logs every conflict.
func WithSuppressed(sources ...records.Source) Option {
	return func(o *options) error {
		o.suppressed = append([]records.Source(nil), sources...)
		return nil
	}
}

// WithLogger sets the logger conflicts are reported to.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		o.logger = logger
		return nil
	}
}

// WithObserver registers a conflict observer, typically a metrics counter.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		if observer == nil {
			return &errors.ValidationError{Field: "observer", Message: "cannot be nil"}
		}
		o.observer = observer
		return nil
	}
}
