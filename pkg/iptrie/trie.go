// Package iptrie merges IPv4 and IPv6 allocations in a binary trie keyed
// by address bits.
//
// Every record is cut into CIDR blocks and each block competes for the trie
// node at its prefix. A claimed node owns its whole block: no descendant of
// a claimed node is ever claimed at the same time.
package iptrie

import (
	"github.com/agentstation/rirstats/pkg/records"
)

// Node is one bit position in the trie.
type Node struct {
	children [2]*Node
	record   *records.Record
}

// Record returns the record claiming the node's block, or nil.
func (n *Node) Record() *records.Record {
	if n == nil {
		return nil
	}
	return n.record
}

// Child returns the child for bit b, or nil.
func (n *Node) Child(b uint) *Node {
	if n == nil {
		return nil
	}
	return n.children[b]
}

func (n *Node) child(b uint) *Node {
	if n.children[b] == nil {
		n.children[b] = &Node{}
	}
	return n.children[b]
}

func (n *Node) prune() {
	n.children = [2]*Node{}
}

// descendants appends every record claimed strictly below n.
func (n *Node) descendants(out []*records.Record) []*records.Record {
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if c.record != nil {
			out = append(out, c.record)
			continue
		}
		out = c.descendants(out)
	}
	return out
}

// Trie is a merged address space for one IP family.
type Trie struct {
	kind  records.Kind
	width int
	root  *Node
	count int
}

// New returns an empty trie for kind, which must be ipv4 or ipv6.
func New(kind records.Kind) *Trie {
	return &Trie{kind: kind, width: kind.Width(), root: &Node{}}
}

// Kind returns the address family of the trie.
func (t *Trie) Kind() records.Kind { return t.kind }

// Root returns the root node.
func (t *Trie) Root() *Node { return t.root }

// Len returns the number of claimed blocks.
func (t *Trie) Len() int { return t.count }

// Records returns the claimed blocks in ascending address order.
func (t *Trie) Records() []*records.Record {
	out := make([]*records.Record, 0, t.count)
	t.Walk(func(r *records.Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Walk visits claimed records in ascending address order until fn returns false.
func (t *Trie) Walk(fn func(*records.Record) bool) {
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.record != nil {
			if !fn(n.record) {
				return
			}
			continue
		}
		for b := 1; b >= 0; b-- {
			if c := n.children[b]; c != nil {
				stack = append(stack, c)
			}
		}
	}
}

// Diff compares two tries position by position. Either side may be nil.
// Deltas come out in ascending address order.
func Diff(current, previous *Trie) []records.Delta {
	var a, b *Node
	if current != nil {
		a = current.root
	}
	if previous != nil {
		b = previous.root
	}
	return diffNodes(a, b, nil)
}

func diffNodes(a, b *Node, out []records.Delta) []records.Delta {
	if a == nil && b == nil {
		return out
	}
	ar, br := a.Record(), b.Record()
	switch {
	case ar != nil && br != nil:
		if ar.String() != br.String() {
			out = append(out, records.Delta{Current: ar, Previous: br})
		}
		return out
	case ar != nil:
		out = append(out, records.Delta{Current: ar})
		for _, r := range below(b) {
			out = append(out, records.Delta{Previous: r})
		}
		return out
	case br != nil:
		out = append(out, records.Delta{Previous: br})
		for _, r := range below(a) {
			out = append(out, records.Delta{Current: r})
		}
		return out
	}
	for bit := uint(0); bit < 2; bit++ {
		out = diffNodes(a.Child(bit), b.Child(bit), out)
	}
	return out
}

func below(n *Node) []*records.Record {
	if n == nil {
		return nil
	}
	return n.descendants(nil)
}
