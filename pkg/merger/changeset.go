package merger

import (
	"fmt"
	"strings"

	"github.com/agentstation/rirstats/pkg/iptrie"
	"github.com/agentstation/rirstats/pkg/records"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a record was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a block changed owner or attributes.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a record was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// Change is one delta tagged with its kind.
type Change struct {
	Kind  records.Kind
	Delta records.Delta
}

// Type classifies the change.
func (c Change) Type() ChangeType {
	switch {
	case c.Delta.Added():
		return ChangeTypeAdd
	case c.Delta.Removed():
		return ChangeTypeRemove
	}
	return ChangeTypeUpdate
}

// Changeset represents all changes between two merges.
type Changeset struct {
	Changes []Change
	Summary ChangesetSummary
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Added        int `json:"added" yaml:"added"`
	Changed      int `json:"changed" yaml:"changed"`
	Removed      int `json:"removed" yaml:"removed"`
	TotalChanges int `json:"total" yaml:"total"`
}

// Diff compares two merge results. Address families are compared block by
// block through their tries; AS numbers are compared by range.
func Diff(current, previous *Result) *Changeset {
	cs := &Changeset{}
	cs.add(records.KindASN, diffRecords(asnRecords(current), asnRecords(previous)))
	cs.add(records.KindIPv4, iptrie.Diff(trieOf(current, records.KindIPv4), trieOf(previous, records.KindIPv4)))
	cs.add(records.KindIPv6, iptrie.Diff(trieOf(current, records.KindIPv6), trieOf(previous, records.KindIPv6)))
	return cs
}

func (c *Changeset) add(kind records.Kind, deltas []records.Delta) {
	for _, d := range deltas {
		c.Changes = append(c.Changes, Change{Kind: kind, Delta: d})
		switch {
		case d.Added():
			c.Summary.Added++
		case d.Removed():
			c.Summary.Removed++
		default:
			c.Summary.Changed++
		}
		c.Summary.TotalChanges++
	}
}

// Added returns the added records.
func (c *Changeset) Added() []*records.Record {
	return c.collect(ChangeTypeAdd, func(d records.Delta) *records.Record { return d.Current })
}

// Removed returns the removed records.
func (c *Changeset) Removed() []*records.Record {
	return c.collect(ChangeTypeRemove, func(d records.Delta) *records.Record { return d.Previous })
}

// Changed returns the deltas where both sides exist.
func (c *Changeset) Changed() []records.Delta {
	var out []records.Delta
	for _, ch := range c.Changes {
		if ch.Type() == ChangeTypeUpdate {
			out = append(out, ch.Delta)
		}
	}
	return out
}

func (c *Changeset) collect(t ChangeType, pick func(records.Delta) *records.Record) []*records.Record {
	var out []*records.Record
	for _, ch := range c.Changes {
		if ch.Type() == t {
			out = append(out, pick(ch.Delta))
		}
	}
	return out
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}
	var parts []string
	if c.Summary.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", c.Summary.Added))
	}
	if c.Summary.Changed > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", c.Summary.Changed))
	}
	if c.Summary.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", c.Summary.Removed))
	}
	return "Records: " + strings.Join(parts, ", ")
}

func asnRecords(r *Result) []*records.Record {
	if r == nil {
		return nil
	}
	if r.ASN != nil {
		return r.ASN.Records()
	}
	if r.Stats != nil {
		return r.Stats.ASN
	}
	return nil
}

func trieOf(r *Result, kind records.Kind) *iptrie.Trie {
	if r == nil {
		return nil
	}
	if kind == records.KindIPv4 {
		return r.IPv4
	}
	return r.IPv6
}

// diffRecords walks two range-ordered lists in step. Records with the same
// range are compared by string form.
func diffRecords(current, previous []*records.Record) []records.Delta {
	var out []records.Delta
	i, j := 0, 0
	for i < len(current) || j < len(previous) {
		switch {
		case j == len(previous):
			out = append(out, records.Delta{Current: current[i]})
			i++
		case i == len(current):
			out = append(out, records.Delta{Previous: previous[j]})
			j++
		default:
			c := current[i].Range().Compare(previous[j].Range())
			switch {
			case c < 0:
				out = append(out, records.Delta{Current: current[i]})
				i++
			case c > 0:
				out = append(out, records.Delta{Previous: previous[j]})
				j++
			default:
				if current[i].String() != previous[j].String() {
					out = append(out, records.Delta{Current: current[i], Previous: previous[j]})
				}
				i++
				j++
			}
		}
	}
	return out
}
