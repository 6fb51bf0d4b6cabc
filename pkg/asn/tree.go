// Package asn merges autonomous system number allocations.
//
// Claimed ranges live in a red-black interval tree ordered by (start, end)
// and augmented with the largest end point of every subtree, so the first
// claim overlapping a candidate is found in O(log n). Nodes are stored in a
// slice and linked by index; index 0 is the shared black sentinel that
// stands in for every leaf.
package asn

import (
	"lukechampine.com/uint128"

	"github.com/agentstation/rirstats/pkg/records"
)

type color bool

const (
	black color = false
	red   color = true
)

// nilNode is the index of the sentinel.
const nilNode = 0

type node struct {
	rng    records.Range
	rec    *records.Record
	max    uint128.Uint128
	left   int
	right  int
	parent int
	color  color
}

// Entry is a stored range and the record claiming it.
type Entry struct {
	Range  records.Range
	Record *records.Record
}

// Tree is a red-black interval tree of non-overlapping claims.
// It is not safe for concurrent use.
type Tree struct {
	nodes []node
	free  []int
	root  int
	count int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make([]node, 1, 64)}
}

// Len returns the number of stored ranges.
func (t *Tree) Len() int { return t.count }

// Insert stores rec under its range. A range that is already stored is
// left untouched and Insert returns false.
func (t *Tree) Insert(rec *records.Record) bool {
	return t.insert(rec.Range(), rec)
}

// InsertRange stores a bare range with no record attached.
func (t *Tree) InsertRange(rng records.Range) bool {
	return t.insert(rng, nil)
}

// Remove deletes the entry stored under exactly rng.
func (t *Tree) Remove(rng records.Range) bool {
	z := t.find(rng)
	if z == nilNode {
		return false
	}
	t.removeNode(z)
	return true
}

// FindFirstOverlap returns the first stored entry overlapping rng found
// by descending from the root.
func (t *Tree) FindFirstOverlap(rng records.Range) (Entry, bool) {
	x := t.findFirstOverlap(rng)
	if x == nilNode {
		return Entry{}, false
	}
	return t.entry(x), true
}

// FindAllOverlaps returns every stored entry overlapping rng in ascending order.
func (t *Tree) FindAllOverlaps(rng records.Range) []Entry {
	var out []Entry
	t.collectOverlaps(t.root, rng, &out)
	return out
}

// FindExact returns the entry stored under exactly rng.
func (t *Tree) FindExact(rng records.Range) (Entry, bool) {
	x := t.find(rng)
	if x == nilNode {
		return Entry{}, false
	}
	return t.entry(x), true
}

// Walk visits entries in ascending order until fn returns false.
func (t *Tree) Walk(fn func(Entry) bool) {
	var stack []int
	x := t.root
	for x != nilNode || len(stack) > 0 {
		for x != nilNode {
			stack = append(stack, x)
			x = t.nodes[x].left
		}
		x = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(t.entry(x)) {
			return
		}
		x = t.nodes[x].right
	}
}

// Records returns the stored records in ascending order.
func (t *Tree) Records() []*records.Record {
	out := make([]*records.Record, 0, t.count)
	t.Walk(func(e Entry) bool {
		out = append(out, e.Record)
		return true
	})
	return out
}

// Ranges returns the stored ranges in ascending order.
func (t *Tree) Ranges() []records.Range {
	out := make([]records.Range, 0, t.count)
	t.Walk(func(e Entry) bool {
		out = append(out, e.Range)
		return true
	})
	return out
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	return t.depth(t.root)
}

func (t *Tree) depth(x int) int {
	if x == nilNode {
		return 0
	}
	return 1 + max(t.depth(t.nodes[x].left), t.depth(t.nodes[x].right))
}

func (t *Tree) entry(x int) Entry {
	return Entry{Range: t.nodes[x].rng, Record: t.nodes[x].rec}
}

func (t *Tree) find(rng records.Range) int {
	x := t.root
	for x != nilNode {
		switch c := rng.Compare(t.nodes[x].rng); {
		case c == 0:
			return x
		case c < 0:
			x = t.nodes[x].left
		default:
			x = t.nodes[x].right
		}
	}
	return nilNode
}

// findFirstOverlap descends left only when the left subtree reaches
// rng.Start; otherwise no overlap can be on the left.
func (t *Tree) findFirstOverlap(rng records.Range) int {
	x := t.root
	for x != nilNode {
		n := &t.nodes[x]
		if n.rng.Overlaps(rng) {
			return x
		}
		if n.left != nilNode && t.nodes[n.left].max.Cmp(rng.Start) >= 0 {
			x = n.left
		} else {
			x = n.right
		}
	}
	return nilNode
}

func (t *Tree) collectOverlaps(x int, rng records.Range, out *[]Entry) {
	if x == nilNode || t.nodes[x].max.Cmp(rng.Start) < 0 {
		return
	}
	n := t.nodes[x]
	t.collectOverlaps(n.left, rng, out)
	if n.rng.Overlaps(rng) {
		*out = append(*out, t.entry(x))
	}
	if n.rng.Start.Cmp(rng.End) <= 0 {
		t.collectOverlaps(n.right, rng, out)
	}
}

func (t *Tree) alloc(rng records.Range, rec *records.Record) int {
	n := node{rng: rng, rec: rec, max: rng.End, color: red}
	if k := len(t.free); k > 0 {
		x := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[x] = n
		return x
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) release(x int) {
	t.nodes[x] = node{}
	t.free = append(t.free, x)
}

func (t *Tree) insert(rng records.Range, rec *records.Record) bool {
	y, x := nilNode, t.root
	for x != nilNode {
		y = x
		c := rng.Compare(t.nodes[x].rng)
		if c == 0 {
			return false
		}
		if c < 0 {
			x = t.nodes[x].left
		} else {
			x = t.nodes[x].right
		}
	}

	z := t.alloc(rng, rec)
	t.nodes[z].parent = y
	switch {
	case y == nilNode:
		t.root = z
	case rng.Compare(t.nodes[y].rng) < 0:
		t.nodes[y].left = z
	default:
		t.nodes[y].right = z
	}

	// Ancestors always carry a max at least as large as their descendants.
	for p := y; p != nilNode && t.nodes[p].max.Cmp(rng.End) < 0; p = t.nodes[p].parent {
		t.nodes[p].max = rng.End
	}

	t.insertFixup(z)
	t.count++
	return true
}

func (t *Tree) insertFixup(z int) {
	for t.colorOf(t.nodes[z].parent) == red {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			u := t.nodes[g].right
			if t.colorOf(u) == red {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].right {
				z = p
				t.rotateLeft(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.rotateRight(g)
		} else {
			u := t.nodes[g].left
			if t.colorOf(u) == red {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].left {
				z = p
				t.rotateRight(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.rotateLeft(g)
		}
	}
	t.nodes[t.root].color = black
}

// removeNode deletes x. A node with two children takes over its
// predecessor's payload and the predecessor, which has no right child,
// is spliced out instead.
func (t *Tree) removeNode(z int) {
	if t.nodes[z].left != nilNode && t.nodes[z].right != nilNode {
		p := t.maxNode(t.nodes[z].left)
		t.nodes[z].rng = t.nodes[p].rng
		t.nodes[z].rec = t.nodes[p].rec
		z = p
	}

	child := t.nodes[z].left
	if child == nilNode {
		child = t.nodes[z].right
	}
	parent := t.nodes[z].parent

	// The sentinel's parent is set on purpose so the fixup can climb from it.
	t.nodes[child].parent = parent
	switch {
	case parent == nilNode:
		t.root = child
	case z == t.nodes[parent].left:
		t.nodes[parent].left = child
	default:
		t.nodes[parent].right = child
	}

	for p := parent; p != nilNode; p = t.nodes[p].parent {
		t.updateMax(p)
	}

	if t.nodes[z].color == black {
		t.deleteFixup(child)
	}

	t.release(z)
	t.nodes[nilNode] = node{}
	t.count--
}

func (t *Tree) deleteFixup(x int) {
	for x != t.root && t.nodes[x].color == black {
		p := t.nodes[x].parent
		if x == t.nodes[p].left {
			w := t.nodes[p].right
			if t.nodes[w].color == red {
				t.nodes[w].color = black
				t.nodes[p].color = red
				t.rotateLeft(p)
				w = t.nodes[p].right
			}
			if t.colorOf(t.nodes[w].left) == black && t.colorOf(t.nodes[w].right) == black {
				t.nodes[w].color = red
				x = p
				continue
			}
			if t.colorOf(t.nodes[w].right) == black {
				t.nodes[t.nodes[w].left].color = black
				t.nodes[w].color = red
				t.rotateRight(w)
				w = t.nodes[p].right
			}
			t.nodes[w].color = t.nodes[p].color
			t.nodes[p].color = black
			t.nodes[t.nodes[w].right].color = black
			t.rotateLeft(p)
			x = t.root
		} else {
			w := t.nodes[p].left
			if t.nodes[w].color == red {
				t.nodes[w].color = black
				t.nodes[p].color = red
				t.rotateRight(p)
				w = t.nodes[p].left
			}
			if t.colorOf(t.nodes[w].left) == black && t.colorOf(t.nodes[w].right) == black {
				t.nodes[w].color = red
				x = p
				continue
			}
			if t.colorOf(t.nodes[w].left) == black {
				t.nodes[t.nodes[w].right].color = black
				t.nodes[w].color = red
				t.rotateLeft(w)
				w = t.nodes[p].left
			}
			t.nodes[w].color = t.nodes[p].color
			t.nodes[p].color = black
			t.nodes[t.nodes[w].left].color = black
			t.rotateRight(p)
			x = t.root
		}
	}
	t.nodes[x].color = black
}

func (t *Tree) rotateLeft(x int) {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	if t.nodes[y].left != nilNode {
		t.nodes[t.nodes[y].left].parent = x
	}
	t.replaceChild(x, y)
	t.nodes[y].left = x
	t.nodes[x].parent = y
	t.updateMax(x)
	t.updateMax(y)
}

func (t *Tree) rotateRight(x int) {
	y := t.nodes[x].left
	t.nodes[x].left = t.nodes[y].right
	if t.nodes[y].right != nilNode {
		t.nodes[t.nodes[y].right].parent = x
	}
	t.replaceChild(x, y)
	t.nodes[y].right = x
	t.nodes[x].parent = y
	t.updateMax(x)
	t.updateMax(y)
}

// replaceChild puts y where x hangs off its parent.
func (t *Tree) replaceChild(x, y int) {
	p := t.nodes[x].parent
	t.nodes[y].parent = p
	switch {
	case p == nilNode:
		t.root = y
	case x == t.nodes[p].left:
		t.nodes[p].left = y
	default:
		t.nodes[p].right = y
	}
}

func (t *Tree) updateMax(x int) {
	n := &t.nodes[x]
	m := n.rng.End
	if n.left != nilNode && t.nodes[n.left].max.Cmp(m) > 0 {
		m = t.nodes[n.left].max
	}
	if n.right != nilNode && t.nodes[n.right].max.Cmp(m) > 0 {
		m = t.nodes[n.right].max
	}
	n.max = m
}

func (t *Tree) maxNode(x int) int {
	for t.nodes[x].right != nilNode {
		x = t.nodes[x].right
	}
	return x
}

func (t *Tree) colorOf(x int) color {
	if x == nilNode {
		return black
	}
	return t.nodes[x].color
}
