// Package pipeline wires retrieval, parsing, preprocessing, merging and
// writing into the generate and diff workflows.
package pipeline

import (
	"bytes"
	"context"

	"github.com/agentstation/rirstats/internal/metrics"
	"github.com/agentstation/rirstats/internal/parser"
	"github.com/agentstation/rirstats/internal/preprocess"
	"github.com/agentstation/rirstats/internal/retriever"
	"github.com/agentstation/rirstats/internal/writer"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/merger"
	"github.com/agentstation/rirstats/pkg/records"
)

// Dataset names for the non-RIR inputs.
const (
	NameIANA  = "iana"
	NameSwaps = "rir-swap"
)

// Inputs locates the source files. Each value is a URL or a path.
type Inputs struct {
	// RIR maps a registry name to its delegated stats file.
	RIR   map[string]string
	IANA  string
	Swaps string
}

// uris returns every input keyed by dataset name.
func (in Inputs) uris() map[string]string {
	out := make(map[string]string, len(in.RIR)+2)
	for name, uri := range in.RIR {
		out[name] = uri
	}
	if in.IANA != "" {
		out[NameIANA] = in.IANA
	}
	if in.Swaps != "" {
		out[NameSwaps] = in.Swaps
	}
	return out
}

// Pipeline runs the workflows. Build it with New.
type Pipeline struct {
	retriever *retriever.Retriever
	parser    *parser.Parser
	merger    *merger.Merger
	writer    *writer.Writer
	metrics   *metrics.Metrics

	cacheFile   string
	metricsFile string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetriever sets the retriever.
func WithRetriever(r *retriever.Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

// WithParser sets the parser.
func WithParser(ps *parser.Parser) Option {
	return func(p *Pipeline) { p.parser = ps }
}

// WithMerger sets the merger.
func WithMerger(m *merger.Merger) Option {
	return func(p *Pipeline) { p.merger = m }
}

// WithWriter sets the writer used by Generate.
func WithWriter(w *writer.Writer) Option {
	return func(p *Pipeline) { p.writer = w }
}

// WithMetrics sets the collectors and the textfile Generate dumps them to.
// An empty path keeps the metrics in memory only.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(p *Pipeline) {
		p.metrics = m
		p.metricsFile = path
	}
}

// WithCacheFile persists the retriever cache in path between runs.
func WithCacheFile(path string) Option {
	return func(p *Pipeline) { p.cacheFile = path }
}

// New creates a Pipeline. Components not given as options use their defaults.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.retriever == nil {
		p.retriever = retriever.New()
	}
	if p.parser == nil {
		p.parser = parser.New()
	}
	if p.merger == nil {
		m, err := merger.New()
		if err != nil {
			return nil, err
		}
		p.merger = m
	}
	if p.writer == nil {
		p.writer = writer.New()
	}
	return p, nil
}

// Generate fetches and merges the inputs and writes the result.
func (p *Pipeline) Generate(ctx context.Context, in Inputs) (*merger.Result, error) {
	ctx = logging.WithOperation(ctx, "generate")
	logger := logging.FromContext(ctx)
	logger.Info().Int("registries", len(in.RIR)).Msg("Generating merged stats")

	res, err := p.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := p.writer.Write(ctx, res.Stats); err != nil {
		return nil, err
	}
	if p.metrics != nil && p.metricsFile != "" {
		if err := p.metrics.WriteTextfile(p.metricsFile); err != nil {
			return nil, err
		}
	}

	logger.Info().Str("path", p.writer.Path()).Msg(res.Summary())
	return res, nil
}

// Merge fetches, parses and merges the inputs without writing anything.
func (p *Pipeline) Merge(ctx context.Context, in Inputs) (*merger.Result, error) {
	sources, err := p.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	return p.merger.Merge(ctx, sources)
}

// Load fetches and parses the inputs. RIR datasets come first in name
// order, followed by IANA and the swaps.
func (p *Pipeline) Load(ctx context.Context, in Inputs) ([]*records.Stats, error) {
	if len(in.RIR) == 0 && in.IANA == "" && in.Swaps == "" {
		return nil, errors.NewValidationError("inputs", nil, "no sources configured")
	}
	p.loadCache(ctx)

	contents, err := p.retriever.FetchAll(ctx, in.uris())
	if err != nil {
		return nil, err
	}
	p.saveCache(ctx)

	var rirs []*records.Stats
	var iana, swaps *records.Stats
	for _, c := range contents {
		switch c.Name {
		case NameIANA:
			iana, err = p.parser.ParseStats(ctx, bytes.NewReader(c.Body), records.SourceStats, c.Name)
		case NameSwaps:
			swaps, err = p.parser.ParseSwaps(ctx, bytes.NewReader(c.Body), c.Name)
		default:
			var s *records.Stats
			s, err = p.parser.ParseStats(ctx, bytes.NewReader(c.Body), records.SourceStats, c.Name)
			rirs = append(rirs, s)
		}
		if err != nil {
			return nil, err
		}
	}

	if iana != nil {
		preprocess.FilterIANA(ctx, iana)
		preprocess.Stamp(iana, records.SourceIANA)
	}

	sources := append(rirs, iana, swaps)
	logging.FromContext(ctx).Debug().
		Strs("sources", preprocess.Sources(sources...)).
		Msg("Loaded sources")
	return sources, nil
}

// Diff loads two merged files and compares them.
func (p *Pipeline) Diff(ctx context.Context, current, previous string) (*merger.Changeset, error) {
	ctx = logging.WithOperation(ctx, "diff")
	cur, err := p.loadMerged(ctx, "current", current)
	if err != nil {
		return nil, err
	}
	prev, err := p.loadMerged(ctx, "previous", previous)
	if err != nil {
		return nil, err
	}
	return merger.Diff(cur, prev), nil
}

// LoadMerged reads one merged file written by Generate and rebuilds its
// engine state.
func (p *Pipeline) LoadMerged(ctx context.Context, uri string) (*merger.Result, error) {
	return p.loadMerged(ctx, "merged", uri)
}

func (p *Pipeline) loadMerged(ctx context.Context, name, uri string) (*merger.Result, error) {
	c, err := p.retriever.Fetch(ctx, name, uri)
	if err != nil {
		return nil, err
	}
	stats, err := p.parser.ParseMerged(ctx, bytes.NewReader(c.Body), name)
	if err != nil {
		return nil, err
	}
	return p.merger.Merge(ctx, []*records.Stats{stats})
}

func (p *Pipeline) loadCache(ctx context.Context) {
	if p.cacheFile == "" {
		return
	}
	if err := p.retriever.Cache().Load(p.cacheFile); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("path", p.cacheFile).Msg("Ignoring unreadable fetch cache")
	}
}

func (p *Pipeline) saveCache(ctx context.Context) {
	if p.cacheFile == "" {
		return
	}
	if err := p.retriever.Cache().Save(p.cacheFile); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("path", p.cacheFile).Msg("Could not persist fetch cache")
	}
}
