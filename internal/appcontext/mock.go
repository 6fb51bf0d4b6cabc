package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/internal/metrics"
	"github.com/agentstation/rirstats/internal/pipeline"
	"github.com/agentstation/rirstats/pkg/logging"
)

// Mock implements Interface for tests. Nil function fields return zero values.
type Mock struct {
	PipelineFunc  func() (*pipeline.Pipeline, error)
	InputsValue   pipeline.Inputs
	MetricsValue  *metrics.Metrics
	LoggerValue   *zerolog.Logger
	FormatValue   string
	PreviousValue string
	VersionValue  string
}

// Pipeline returns the pipeline from PipelineFunc or a default pipeline.
func (m *Mock) Pipeline() (*pipeline.Pipeline, error) {
	if m.PipelineFunc != nil {
		return m.PipelineFunc()
	}
	return pipeline.New()
}

// Inputs returns InputsValue.
func (m *Mock) Inputs() pipeline.Inputs { return m.InputsValue }

// Metrics returns MetricsValue.
func (m *Mock) Metrics() *metrics.Metrics { return m.MetricsValue }

// Logger returns LoggerValue or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerValue != nil {
		return m.LoggerValue
	}
	return logging.NewNopLogger()
}

// OutputFormat returns FormatValue.
func (m *Mock) OutputFormat() string { return m.FormatValue }

// Previous returns PreviousValue.
func (m *Mock) Previous() string { return m.PreviousValue }

// Version returns VersionValue.
func (m *Mock) Version() string { return m.VersionValue }

// Commit returns a fixed value.
func (m *Mock) Commit() string { return "test" }

// Date returns a fixed value.
func (m *Mock) Date() string { return "test" }

// BuiltBy returns a fixed value.
func (m *Mock) BuiltBy() string { return "test" }

var _ Interface = (*Mock)(nil)
