package resolver

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
)

// Config is the serializable form of the resolver options.
type Config struct {
	Priority          []string `yaml:"priority" mapstructure:"priority"`
	SourceOrder       []string `yaml:"source_order,omitempty" mapstructure:"source_order"`
	SuppressConflicts []string `yaml:"suppress_conflicts,omitempty" mapstructure:"suppress_conflicts"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() Config {
	cfg := Config{Priority: append([]string(nil), DefaultPriority...)}
	for _, s := range DefaultSourceOrder {
		cfg.SourceOrder = append(cfg.SourceOrder, s.String())
	}
	cfg.SuppressConflicts = []string{records.SourceSwap.String()}
	return cfg
}

// LoadConfig reads a YAML resolver configuration from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapIO("read", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		var parseErr *errors.ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes a YAML resolver configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.NewParseError("yaml", "", err.Error(), err)
	}
	return cfg, nil
}

// Options converts the configuration into resolver options. Empty fields
// keep the defaults.
func (c Config) Options() ([]Option, error) {
	var opts []Option
	if len(c.Priority) > 0 {
		opts = append(opts, WithPriority(c.Priority...))
	}
	if c.SourceOrder != nil {
		order, err := parseSources("source_order", c.SourceOrder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSourceOrder(order...))
	}
	if c.SuppressConflicts != nil {
		suppressed, err := parseSources("suppress_conflicts", c.SuppressConflicts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSuppressed(suppressed...))
	}
	return opts, nil
}

// FromConfig builds a Resolver from cfg, followed by any extra options.
func FromConfig(cfg Config, extra ...Option) (*Resolver, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(append(opts, extra...)...)
}

func parseSources(field string, names []string) ([]records.Source, error) {
	out := make([]records.Source, 0, len(names))
	for _, name := range names {
		src, ok := records.ParseSource(name)
		if !ok {
			return nil, errors.NewConfigError("resolver", field+": unknown source "+name, errors.ErrInvalidInput)
		}
		out = append(out, src)
	}
	return out, nil
}
