// Package resolver decides which of two overlapping allocation records
// keeps the contested resource.
//
// Records are ranked by the position of their registry in a configured
// priority list; unlisted registries rank below every listed one. Ties are
// broken by provenance, registry name, range and finally the rendered line,
// which makes the ranking a total order: Resolve(a, b) and Resolve(b, a)
// always pick the same record.
package resolver

import (
	"cmp"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
)

// Resolver ranks competing records. It is immutable after construction
// and safe for concurrent use.
type Resolver struct {
	priority   []string
	rank       map[string]int
	sourceRank map[records.Source]int
	suppressed map[records.Source]bool
	logger     *zerolog.Logger
	observer   Observer
	conflicts  atomic.Int64
}

// New creates a Resolver.
func New(opts ...Option) (*Resolver, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		priority:   o.priority,
		rank:       make(map[string]int, len(o.priority)),
		sourceRank: make(map[records.Source]int, len(o.sourceOrder)),
		suppressed: make(map[records.Source]bool, len(o.suppressed)),
		logger:     o.logger,
		observer:   o.observer,
	}
	for i, registry := range o.priority {
		r.rank[registry] = i
	}
	for i, src := range o.sourceOrder {
		if _, dup := r.sourceRank[src]; !dup {
			r.sourceRank[src] = i
		}
	}
	for _, src := range o.suppressed {
		r.suppressed[src] = true
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r, nil
}

// Priority returns the configured registry order.
func (r *Resolver) Priority() []string {
	return append([]string(nil), r.priority...)
}

// Rank returns the priority index of a registry; unlisted registries
// share the lowest rank.
func (r *Resolver) Rank(registry string) int {
	if i, ok := r.rank[registry]; ok {
		return i
	}
	return len(r.priority)
}

func (r *Resolver) rankSource(src records.Source) int {
	if i, ok := r.sourceRank[src]; ok {
		return i
	}
	return len(r.sourceRank)
}

// Compare returns a positive number when a is preferred over b, a negative
// number when b is preferred, and zero only when the records are
// indistinguishable. Compare(a, b) == -Compare(b, a).
func (r *Resolver) Compare(a, b *records.Record) int {
	if c := cmp.Compare(r.Rank(b.Registry), r.Rank(a.Registry)); c != 0 {
		return c
	}
	if c := cmp.Compare(r.rankSource(b.Source), r.rankSource(a.Source)); c != 0 {
		return c
	}
	if c := strings.Compare(b.Registry, a.Registry); c != 0 {
		return c
	}
	ar, br := a.Range(), b.Range()
	if c := br.Start.Cmp(ar.Start); c != 0 {
		return c
	}
	if c := ar.Span().Cmp(br.Span()); c != 0 {
		return c
	}
	return strings.Compare(b.String(), a.String())
}

// Resolve returns the preferred record of the two.
func (r *Resolver) Resolve(a, b *records.Record) *records.Record {
	if r.Compare(a, b) >= 0 {
		return a
	}
	return b
}

// Outranks reports whether a is strictly preferred over b.
// Engines only evict an existing claim on a strict win.
func (r *Resolver) Outranks(a, b *records.Record) bool {
	return r.Compare(a, b) > 0
}

// OutranksAll reports whether a is strictly preferred over every record in others.
func (r *Resolver) OutranksAll(a *records.Record, others []*records.Record) bool {
	for _, o := range others {
		if !r.Outranks(a, o) {
			return false
		}
	}
	return true
}

// RecordConflict logs one warning per loser that overlaps the winner.
// Nothing is logged for pairs where either side has a suppressed provenance.
func (r *Resolver) RecordConflict(winner *records.Record, losers ...*records.Record) {
	if r.suppressed[winner.Source] {
		return
	}
	for _, loser := range losers {
		if r.suppressed[loser.Source] {
			continue
		}
		overlap, ok := winner.Range().Intersection(loser.Range())
		if !ok {
			continue
		}
		r.conflicts.Add(1)
		r.logger.Warn().
			Str("kind", winner.Kind.String()).
			Str("overlap", winner.Kind.FormatRange(overlap)).
			Str("winner", winner.Registry).
			Str("loser", loser.Registry).
			Msg("Conflict found")
		if r.observer != nil {
			r.observer.Conflict(winner.Kind)
		}
	}
}

// Conflicts returns how many conflicts have been logged so far.
func (r *Resolver) Conflicts() int64 {
	return r.conflicts.Load()
}
