package asn

import (
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

// Merger reconciles ASN records into a tree of non-overlapping claims.
type Merger struct {
	resolver *resolver.Resolver
}

// NewMerger returns a Merger that settles overlaps with res.
func NewMerger(res *resolver.Resolver) *Merger {
	return &Merger{resolver: res}
}

// Merge claims every record in input order. When two records overlap the
// loser keeps only the parts outside the winner's range; an evicted claim
// has its remainders requeued and the winner retries.
func (m *Merger) Merge(recs []*records.Record) (*Tree, error) {
	stack := make([]*records.Record, len(recs))
	for i, r := range recs {
		if r.Kind != records.KindASN {
			return nil, errors.NewValidationError("kind", r.Kind, "asn merger only accepts asn records")
		}
		stack[len(recs)-1-i] = r
	}

	t := NewTree()
	for len(stack) > 0 {
		candidate := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rng := candidate.Range()
		x := t.findFirstOverlap(rng)
		if x == nilNode {
			t.insert(rng, candidate)
			continue
		}

		existing := t.nodes[x].rec
		if !m.resolver.Outranks(candidate, existing) {
			m.resolver.RecordConflict(existing, candidate)
			stack = pushRemainders(stack, candidate, existing.Range())
			continue
		}

		m.resolver.RecordConflict(candidate, existing)
		t.removeNode(x)
		stack = pushRemainders(stack, existing, rng)
		stack = append(stack, candidate)
	}
	return t, nil
}

// pushRemainders pushes the parts of r outside cut, so the lowest pops first.
func pushRemainders(stack []*records.Record, r *records.Record, cut records.Range) []*records.Record {
	rest := r.Range().Exclude(cut)
	for i := len(rest) - 1; i >= 0; i-- {
		stack = append(stack, r.Clone(rest[i]))
	}
	return stack
}
