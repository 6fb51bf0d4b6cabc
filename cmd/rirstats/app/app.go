// Package app holds the configuration, logger and lazily built pipeline of
// the rirstats CLI, and wires them into the cobra commands.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/internal/appcontext"
	"github.com/agentstation/rirstats/internal/metrics"
	"github.com/agentstation/rirstats/internal/parser"
	"github.com/agentstation/rirstats/internal/pipeline"
	"github.com/agentstation/rirstats/internal/retriever"
	"github.com/agentstation/rirstats/internal/writer"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/merger"
	"github.com/agentstation/rirstats/pkg/resolver"
)

// App is the rirstats application and its dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu       sync.Mutex
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
}

var _ appcontext.Interface = (*App)(nil)

// New creates an App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		metrics: metrics.New(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Previous returns the configured output.previous file.
func (a *App) Previous() string { return a.config.Previous }

// Metrics returns the collectors shared by every component.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Inputs returns the configured source locations.
func (a *App) Inputs() pipeline.Inputs { return a.config.Inputs }

// Pipeline returns the pipeline, building it on first use.
func (a *App) Pipeline() (*pipeline.Pipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pipeline != nil {
		return a.pipeline, nil
	}
	p, err := a.buildPipeline()
	if err != nil {
		return nil, errors.WrapResource("create", "pipeline", "", err)
	}
	a.pipeline = p
	return p, nil
}

func (a *App) buildPipeline() (*pipeline.Pipeline, error) {
	cfg := a.config

	resolverCfg, err := cfg.ResolverConfig()
	if err != nil {
		return nil, err
	}
	res, err := resolver.FromConfig(resolverCfg, resolver.WithLogger(a.logger), resolver.WithObserver(a.metrics))
	if err != nil {
		return nil, err
	}

	mergerOpts := []merger.Option{merger.WithResolver(res), merger.WithRecorder(a.metrics)}
	if cfg.Identifier != "" {
		mergerOpts = append(mergerOpts, merger.WithIdentifier(cfg.Identifier))
	}
	if cfg.Version != "" {
		mergerOpts = append(mergerOpts, merger.WithVersion(cfg.Version))
	}
	m, err := merger.New(mergerOpts...)
	if err != nil {
		return nil, err
	}

	retrieverOpts := []retriever.Option{
		retriever.WithCache(retriever.NewCache(cfg.CacheTTL)),
		retriever.WithObserver(a.metrics),
	}
	if cfg.HTTPTimeout > 0 {
		retrieverOpts = append(retrieverOpts, retriever.WithTimeout(cfg.HTTPTimeout))
	}
	r := retriever.New(retrieverOpts...)

	w := writer.New(
		writer.WithFolder(cfg.OutputFolder),
		writer.WithFile(cfg.OutputFile),
		writer.WithBackup(cfg.OutputBackup),
		writer.WithBackupFormat(cfg.OutputBackupFormat),
	)

	return pipeline.New(
		pipeline.WithRetriever(r),
		pipeline.WithParser(parser.New()),
		pipeline.WithMerger(m),
		pipeline.WithWriter(w),
		pipeline.WithMetrics(a.metrics, cfg.MetricsFile),
		pipeline.WithCacheFile(cfg.CacheFile),
	)
}

// Shutdown releases the application's resources.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipeline = nil
	return nil
}

// Option configures the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithPipeline sets a prebuilt pipeline.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(a *App) error {
		a.pipeline = p
		return nil
	}
}
