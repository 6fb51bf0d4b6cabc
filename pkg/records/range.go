package records

import (
	"fmt"

	"lukechampine.com/uint128"
)

// Range is a closed interval [Start, End] of unsigned integers.
// ASN and IPv4 ranges only use the low 32 bits.
type Range struct {
	Start uint128.Uint128
	End   uint128.Uint128
}

// NewRange returns the closed range [start, end].
// It panics if end is below start; callers validate input before building ranges.
func NewRange(start, end uint128.Uint128) Range {
	if start.Cmp(end) > 0 {
		panic(fmt.Sprintf("records: inverted range [%s, %s]", start, end))
	}
	return Range{Start: start, End: end}
}

// Range64 is a shorthand for ranges that fit in 64 bits.
func Range64(start, end uint64) Range {
	return NewRange(uint128.From64(start), uint128.From64(end))
}

// Span returns End-Start, the size minus one.
// Unlike a size it cannot overflow for the full 128-bit space.
func (r Range) Span() uint128.Uint128 {
	return r.End.Sub(r.Start)
}

// Size returns the number of values in the range. It wraps to zero
// for the full 128-bit space.
func (r Range) Size() uint128.Uint128 {
	return r.Span().AddWrap64(1)
}

// Overlaps reports whether r and o share at least one value.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Cmp(o.End) <= 0 && o.Start.Cmp(r.End) <= 0
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.Start.Cmp(o.Start) <= 0 && o.End.Cmp(r.End) <= 0
}

// ContainsValue reports whether v lies within r.
func (r Range) ContainsValue(v uint128.Uint128) bool {
	return r.Start.Cmp(v) <= 0 && v.Cmp(r.End) <= 0
}

// Intersection returns the overlap of r and o.
func (r Range) Intersection(o Range) (Range, bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	start, end := r.Start, r.End
	if o.Start.Cmp(start) > 0 {
		start = o.Start
	}
	if o.End.Cmp(end) < 0 {
		end = o.End
	}
	return Range{Start: start, End: end}, true
}

// Exclude returns the parts of r not covered by o, lowest first.
// The result has zero, one or two ranges and never contains r itself
// when r and o overlap.
func (r Range) Exclude(o Range) []Range {
	if !r.Overlaps(o) {
		return []Range{r}
	}
	var out []Range
	if r.Start.Cmp(o.Start) < 0 {
		out = append(out, Range{Start: r.Start, End: o.Start.Sub64(1)})
	}
	if o.End.Cmp(r.End) < 0 {
		out = append(out, Range{Start: o.End.Add64(1), End: r.End})
	}
	return out
}

// Compare orders ranges by start, then by end.
func (r Range) Compare(o Range) int {
	if c := r.Start.Cmp(o.Start); c != 0 {
		return c
	}
	return r.End.Cmp(o.End)
}

// Equal reports whether both ranges cover the same values.
func (r Range) Equal(o Range) bool {
	return r.Start.Equals(o.Start) && r.End.Equals(o.End)
}

// Prefixes decomposes r into the minimal ordered set of aligned blocks
// that exactly cover it, for an address space of the given width.
func (r Range) Prefixes(width int) []Block {
	var blocks []Block
	start := r.Start
	for {
		k := start.TrailingZeros()
		if k > width {
			k = width
		}
		for k > 0 && lastOf(start, k).Cmp(r.End) > 0 {
			k--
		}
		last := lastOf(start, k)
		blocks = append(blocks, Block{Start: start, Bits: width - k, Width: width})
		if last.Cmp(r.End) >= 0 {
			return blocks
		}
		start = last.Add64(1)
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start, r.End)
}

// hostMask returns a value with the k lowest bits set.
func hostMask(k int) uint128.Uint128 {
	if k <= 0 {
		return uint128.Zero
	}
	return uint128.Max.Rsh(uint(128 - k))
}

// lastOf returns the last value of the 2^k sized block starting at an aligned start.
func lastOf(start uint128.Uint128, k int) uint128.Uint128 {
	return start.Or(hostMask(k))
}
