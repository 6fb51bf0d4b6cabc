package records

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func blockStrings(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.String()
	}
	return out
}

func TestRangeOverlapsAndContains(t *testing.T) {
	r := Range64(10, 20)

	assert.True(t, r.Overlaps(Range64(20, 30)))
	assert.True(t, r.Overlaps(Range64(0, 10)))
	assert.True(t, r.Overlaps(Range64(12, 13)))
	assert.False(t, r.Overlaps(Range64(21, 30)))
	assert.False(t, r.Overlaps(Range64(0, 9)))

	assert.True(t, r.Contains(Range64(10, 20)))
	assert.True(t, r.Contains(Range64(11, 19)))
	assert.False(t, r.Contains(Range64(9, 19)))
	assert.True(t, r.ContainsValue(uint128.From64(20)))
	assert.False(t, r.ContainsValue(uint128.From64(21)))
}

func TestRangeExclude(t *testing.T) {
	tests := []struct {
		name string
		r, o Range
		want []Range
	}{
		{"disjoint", Range64(10, 20), Range64(30, 40), []Range{Range64(10, 20)}},
		{"covered", Range64(10, 20), Range64(5, 25), nil},
		{"equal", Range64(10, 20), Range64(10, 20), nil},
		{"middle", Range64(10, 20), Range64(12, 15), []Range{Range64(10, 11), Range64(16, 20)}},
		{"head", Range64(10, 20), Range64(5, 12), []Range{Range64(13, 20)}},
		{"tail", Range64(10, 20), Range64(18, 30), []Range{Range64(10, 17)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Exclude(tt.o))
		})
	}
}

func TestRangeIntersection(t *testing.T) {
	got, ok := Range64(10, 20).Intersection(Range64(15, 30))
	require.True(t, ok)
	assert.Equal(t, Range64(15, 20), got)

	_, ok = Range64(10, 20).Intersection(Range64(21, 30))
	assert.False(t, ok)
}

func TestRangeSizeAndCompare(t *testing.T) {
	assert.Equal(t, uint128.From64(11), Range64(10, 20).Size())
	full := NewRange(uint128.Zero, uint128.Max)
	assert.True(t, full.Size().IsZero())
	assert.Equal(t, uint128.Max, full.Span())

	assert.Negative(t, Range64(1, 5).Compare(Range64(2, 3)))
	assert.Negative(t, Range64(1, 3).Compare(Range64(1, 5)))
	assert.Zero(t, Range64(1, 5).Compare(Range64(1, 5)))
	assert.True(t, Range64(1, 5).Equal(Range64(1, 5)))
}

func TestNewRangePanicsWhenInverted(t *testing.T) {
	assert.Panics(t, func() { Range64(5, 4) })
}

func TestRangePrefixes(t *testing.T) {
	r, err := New(SourceStats, "apnic", "AU", KindIPv4, "1.1.1.128", "256", "20110811", "assigned", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.128/25", "1.1.2.0/25"}, blockStrings(r.Range().Prefixes(32)))

	r, err = New(SourceStats, "apnic", "AU", KindIPv4, "1.1.1.128", "257", "20110811", "assigned", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.128/25", "1.1.2.0/25", "1.1.2.128/32"}, blockStrings(r.Range().Prefixes(32)))

	r, err = New(SourceIANA, "iana", "ZZ", KindIPv4, "0.0.0.0", "4294967296", "19810901", "ietf", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.0.0/0"}, blockStrings(r.Range().Prefixes(32)))

	full := NewRange(uint128.Zero, uint128.Max)
	assert.Equal(t, []string{"::/0"}, blockStrings(full.Prefixes(128)))
}

func TestBlock(t *testing.T) {
	b := BlockFromPrefix(netip.MustParsePrefix("10.1.2.3/8"))
	assert.Equal(t, "10.0.0.0/8", b.String())
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), b.Prefix())
	assert.Equal(t, uint128.From64(1<<24), b.Size())

	low, high := b.Split()
	assert.Equal(t, "10.0.0.0/9", low.String())
	assert.Equal(t, "10.128.0.0/9", high.String())
	assert.Equal(t, uint(0), high.Bit(0))
	assert.Equal(t, uint(1), high.Bit(4))
	assert.Equal(t, uint(1), high.Bit(8))
	assert.Equal(t, uint(0), low.Bit(8))

	single := BlockFromPrefix(netip.MustParsePrefix("10.0.0.1/32"))
	assert.Panics(t, func() { single.Split() })

	v6 := BlockFromPrefix(netip.MustParsePrefix("2001:db8::/32"))
	low, high = v6.Split()
	assert.Equal(t, "2001:db8::/33", low.String())
	assert.Equal(t, "2001:db8:8000::/33", high.String())
	assert.Equal(t, v6.Range(), Range{Start: low.Start, End: high.Range().End})
}
