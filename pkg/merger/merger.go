// Package merger combines the delegated stats of several registries into
// one dataset with no overlapping claims.
//
// Each record kind is merged by its own engine: an interval tree for AS
// numbers and a bit trie for each address family. The three merges share
// nothing but the resolver and run in parallel.
package merger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/rirstats/pkg/asn"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/iptrie"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

const dateLayout = "20060102"

// Merger merges parsed datasets.
type Merger struct {
	opts *options
}

// New creates a Merger. Without WithResolver it uses the default priority.
func New(opts ...Option) (*Merger, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Merger{opts: o}, nil
}

// Resolver returns the resolver in use.
func (m *Merger) Resolver() *resolver.Resolver {
	return m.opts.resolver
}

// Merge unions the records of every source per kind and merges each kind.
// Records keep source order, so earlier sources are tried first.
func (m *Merger) Merge(ctx context.Context, sources []*records.Stats) (*Result, error) {
	logger := logging.FromContext(ctx)
	clk := m.opts.clock
	result := newResult(clk.Now())
	conflictsBefore := m.opts.resolver.Conflicts()

	inputs := make(map[records.Kind][]*records.Record, len(records.Kinds))
	for _, src := range sources {
		if src == nil {
			continue
		}
		result.Metadata.Sources = append(result.Metadata.Sources, src.Identifier)
		for _, kind := range records.Kinds {
			inputs[kind] = append(inputs[kind], src.Records(kind)...)
		}
	}
	for _, kind := range records.Kinds {
		result.Metadata.Stats.In[kind] = len(inputs[kind])
		logger.Info().
			Str("kind", kind.String()).
			Int("records", len(inputs[kind])).
			Msg("Collected records")
	}

	outputs := make([][]*records.Record, len(records.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range records.Kinds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := clk.Now()
			recs, err := m.mergeKind(result, kind, inputs[kind])
			if err != nil {
				return errors.NewMergeError(kind.String(), result.Metadata.Sources, err)
			}
			outputs[i] = recs
			elapsed := clk.Since(started)
			if m.opts.recorder != nil {
				m.opts.recorder.ObserveMerge(kind, len(inputs[kind]), len(recs), elapsed)
			}
			logging.FromContext(logging.WithKind(gctx, kind.String())).Debug().
				Int("in", len(inputs[kind])).
				Int("out", len(recs)).
				Dur("elapsed", elapsed).
				Msg("Merged records")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := records.NewStats(m.opts.identifier)
	for i, kind := range records.Kinds {
		stats.SetRecords(kind, outputs[i])
		result.Metadata.Stats.Out[kind] = len(outputs[i])
	}
	stats.GenerateSummary()
	stats.Headers = []records.Header{m.header(sources, stats.Len())}
	result.Stats = stats
	result.Metadata.Stats.Conflicts = m.opts.resolver.Conflicts() - conflictsBefore
	result.finalize(clk.Now())

	logger.Info().
		Int("records", stats.Len()).
		Int64("conflicts", result.Metadata.Stats.Conflicts).
		Dur("duration", result.Metadata.Duration).
		Msg("Merge complete")
	return result, nil
}

// mergeKind runs the engine for one kind and stores its state on result.
// Each kind writes a different field.
func (m *Merger) mergeKind(result *Result, kind records.Kind, recs []*records.Record) ([]*records.Record, error) {
	switch kind {
	case records.KindASN:
		tree, err := asn.NewMerger(m.opts.resolver).Merge(recs)
		if err != nil {
			return nil, err
		}
		result.ASN = tree
		return tree.Records(), nil
	default:
		trie, err := iptrie.NewMerger(m.opts.resolver).Merge(kind, recs)
		if err != nil {
			return nil, err
		}
		if kind == records.KindIPv4 {
			result.IPv4 = trie
		} else {
			result.IPv6 = trie
		}
		return trie.Records(), nil
	}
}

// header builds the version line. The start date is the earliest start
// date any source reports, or today.
func (m *Merger) header(sources []*records.Stats, total int) records.Header {
	now := m.opts.clock.Now()
	today := now.Format(dateLayout)
	start := ""
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, h := range src.Headers {
			if !validDate(h.StartDate) {
				continue
			}
			if start == "" || h.StartDate < start {
				start = h.StartDate
			}
		}
	}
	if start == "" {
		start = today
	}
	return records.Header{
		Version:   m.opts.version,
		Registry:  m.opts.identifier,
		Serial:    today,
		Records:   strconv.Itoa(total),
		StartDate: start,
		EndDate:   today,
		UTCOffset: now.Format("-0700"),
	}
}

func validDate(s string) bool {
	if len(s) != len(dateLayout) || strings.Trim(s, "0") == "" {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
