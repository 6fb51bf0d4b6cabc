// Package appcontext provides the application context interface shared by
// the CLI commands, so commands depend on an interface rather than the App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/internal/metrics"
	"github.com/agentstation/rirstats/internal/pipeline"
)

// Interface is what commands need from the application.
type Interface interface {
	// Pipeline returns the configured pipeline, creating it lazily.
	Pipeline() (*pipeline.Pipeline, error)

	// Inputs returns the configured source locations.
	Inputs() pipeline.Inputs

	// Metrics returns the collectors the pipeline reports to.
	Metrics() *metrics.Metrics

	// Logger returns the configured logger.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format, or "" to detect it.
	OutputFormat() string

	// Previous returns the merged file diff compares against by default.
	Previous() string

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
