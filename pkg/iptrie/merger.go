package iptrie

import (
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

// pending is a record waiting for its remaining blocks to be placed.
type pending struct {
	rec    *records.Record
	blocks []records.Block
}

// Merger places IP records into a trie, settling overlaps with a resolver.
type Merger struct {
	resolver *resolver.Resolver
}

// NewMerger returns a Merger that settles overlaps with res.
func NewMerger(res *resolver.Resolver) *Merger {
	return &Merger{resolver: res}
}

// Merge builds the trie for kind from recs. Records are processed in
// input order; evicted claims go to the back of the queue.
func (m *Merger) Merge(kind records.Kind, recs []*records.Record) (*Trie, error) {
	if !kind.IsIP() {
		return nil, errors.NewValidationError("kind", kind, "not an address family")
	}
	queue := make([]*pending, 0, len(recs))
	for _, r := range recs {
		if r.Kind != kind {
			return nil, errors.NewValidationError("kind", r.Kind, "expected "+kind.String()+" record")
		}
		queue = append(queue, &pending{rec: r, blocks: r.Range().Prefixes(kind.Width())})
	}

	t := New(kind)
	for head := 0; head < len(queue); head++ {
		p := queue[head]
		queue[head] = nil
		for len(p.blocks) > 0 {
			b := p.blocks[0]
			p.blocks = p.blocks[1:]
			queue = m.place(t, p, b, queue)
		}
	}
	return t, nil
}

// place walks to b's node, evicting weaker claims on the way. It either
// claims the node, gives up under a stronger ancestor, or splits b and
// puts both halves at the front of p's blocks.
func (m *Merger) place(t *Trie, p *pending, b records.Block, queue []*pending) []*pending {
	n := t.root
	for depth := 0; ; depth++ {
		if holder := n.record; holder != nil {
			if !m.resolver.Outranks(p.rec, holder) {
				m.resolver.RecordConflict(holder, p.rec)
				return queue
			}
			n.record = nil
			t.count--
			queue = append(queue, &pending{rec: holder, blocks: holder.Range().Prefixes(t.width)})
		}
		if depth == b.Bits {
			break
		}
		n = n.child(b.Bit(depth))
	}

	claim := p.rec.CloneBlock(b)
	below := n.descendants(nil)
	if len(below) > 0 {
		if !m.resolver.OutranksAll(p.rec, below) {
			lo, hi := b.Split()
			p.blocks = append([]records.Block{lo, hi}, p.blocks...)
			return queue
		}
		m.resolver.RecordConflict(claim, below...)
		t.count -= len(below)
	}
	n.prune()
	n.record = claim
	t.count++
	return queue
}
