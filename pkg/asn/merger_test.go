package asn

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

func newRecord(t *testing.T, src records.Source, registry string, start, count uint64) *records.Record {
	t.Helper()
	r, err := records.New(src, registry, "ZZ", records.KindASN,
		fmt.Sprint(start), fmt.Sprint(count), "20200101", "assigned", "")
	require.NoError(t, err)
	return r
}

func newMerger(t *testing.T, priority ...string) (*Merger, *resolver.Resolver, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger(t)
	res, err := resolver.New(resolver.WithPriority(priority...), resolver.WithLogger(tl.Logger))
	require.NoError(t, err)
	return NewMerger(res), res, tl
}

type claim struct {
	registry string
	start    string
	count    string
}

func claims(recs []*records.Record) []claim {
	out := make([]claim, len(recs))
	for i, r := range recs {
		out[i] = claim{r.Registry, r.Start, r.Value}
	}
	return out
}

func TestMergeSingleASNConflict(t *testing.T) {
	m, res, tl := newMerger(t, "apnic", "afrinic", "arin", "ripencc", "lacnic")

	tree, err := m.Merge([]*records.Record{
		newRecord(t, records.SourceStats, "lacnic", 11, 1),
		newRecord(t, records.SourceStats, "apnic", 11, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, []claim{{"apnic", "11", "1"}}, claims(tree.Records()))
	assert.EqualValues(t, 1, res.Conflicts())
	assert.True(t, tl.Contains(`"winner":"apnic"`))
	assert.True(t, tl.Contains(`"loser":"lacnic"`))
	assert.True(t, tl.Contains(`"overlap":"AS11-AS11"`))
}

func TestMergePartialOverlaps(t *testing.T) {
	pairs := [][4]uint64{
		{11, 5, 11, 5},
		{21, 5, 21, 3},
		{31, 5, 31, 7},
		{41, 5, 42, 2},
		{51, 5, 52, 4},
		{61, 5, 64, 7},
	}
	want := []claim{
		{"apnic", "11", "5"},
		{"apnic", "21", "3"},
		{"ripencc", "24", "2"},
		{"apnic", "31", "7"},
		{"ripencc", "41", "1"},
		{"apnic", "42", "2"},
		{"ripencc", "44", "2"},
		{"ripencc", "51", "1"},
		{"apnic", "52", "4"},
		{"ripencc", "61", "3"},
		{"apnic", "64", "7"},
	}

	t.Run("lower priority first", func(t *testing.T) {
		m, _, _ := newMerger(t, "apnic", "ripencc")
		var recs []*records.Record
		for _, p := range pairs {
			recs = append(recs,
				newRecord(t, records.SourceStats, "ripencc", p[0], p[1]),
				newRecord(t, records.SourceStats, "apnic", p[2], p[3]))
		}
		tree, err := m.Merge(recs)
		require.NoError(t, err)
		assert.Equal(t, want, claims(tree.Records()))
	})

	t.Run("higher priority first", func(t *testing.T) {
		m, _, _ := newMerger(t, "apnic", "ripencc")
		var recs []*records.Record
		for _, p := range pairs {
			recs = append(recs,
				newRecord(t, records.SourceStats, "apnic", p[2], p[3]),
				newRecord(t, records.SourceStats, "ripencc", p[0], p[1]))
		}
		tree, err := m.Merge(recs)
		require.NoError(t, err)
		assert.Equal(t, want, claims(tree.Records()))
	})
}

func TestMergeWinnerSpansSeveralClaims(t *testing.T) {
	m, res, _ := newMerger(t, "apnic", "arin", "ripencc")

	tree, err := m.Merge([]*records.Record{
		newRecord(t, records.SourceStats, "ripencc", 100, 10),
		newRecord(t, records.SourceStats, "arin", 120, 10),
		newRecord(t, records.SourceStats, "ripencc", 140, 10),
		newRecord(t, records.SourceStats, "apnic", 105, 40),
	})
	require.NoError(t, err)

	assert.Equal(t, []claim{
		{"ripencc", "100", "5"},
		{"apnic", "105", "40"},
		{"ripencc", "145", "5"},
	}, claims(tree.Records()))
	assert.EqualValues(t, 3, res.Conflicts())
}

func TestMergeDuplicatesTerminate(t *testing.T) {
	m, _, _ := newMerger(t, "apnic")

	r := newRecord(t, records.SourceStats, "apnic", 64512, 1024)
	tree, err := m.Merge([]*records.Record{r, r, r.Clone(r.Range())})
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestMergeSwapConflictsNotLogged(t *testing.T) {
	m, res, tl := newMerger(t, "apnic", "ripencc")

	tree, err := m.Merge([]*records.Record{
		newRecord(t, records.SourceSwap, "apnic", 1, 100),
		newRecord(t, records.SourceStats, "ripencc", 50, 100),
	})
	require.NoError(t, err)

	assert.Equal(t, []claim{{"apnic", "1", "100"}, {"ripencc", "101", "49"}}, claims(tree.Records()))
	assert.Zero(t, tl.CountContaining("Conflict found"))
	assert.Zero(t, res.Conflicts())
}

func TestMergeRejectsOtherKinds(t *testing.T) {
	m, _, _ := newMerger(t, "apnic")
	ip, err := records.New(records.SourceStats, "apnic", "AU", records.KindIPv4, "1.0.0.0", "256", "", "", "")
	require.NoError(t, err)

	_, err = m.Merge([]*records.Record{ip})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestMergeRandomizedInvariants(t *testing.T) {
	registries := []string{"apnic", "afrinic", "arin", "ripencc", "lacnic"}
	m, _, _ := newMerger(t, registries...)
	rnd := rand.New(rand.NewSource(1))

	var recs []*records.Record
	for i := 0; i < 2000; i++ {
		start := uint64(rnd.Intn(50000))
		count := uint64(rnd.Intn(200) + 1)
		recs = append(recs, newRecord(t, records.SourceStats, registries[rnd.Intn(len(registries))], start, count))
	}

	tree, err := m.Merge(recs)
	require.NoError(t, err)
	checkInvariants(t, tree)
	assert.LessOrEqual(t, tree.Depth(), depthBound(tree.Len()))
	assertSortedDisjoint(t, tree.Ranges())

	// Every value claimed by some input stays claimed.
	covered := map[uint64]bool{}
	for _, r := range recs {
		for v := r.Range().Start.Lo; v <= r.Range().End.Lo; v++ {
			covered[v] = true
		}
	}
	var merged uint64
	for _, r := range tree.Ranges() {
		merged += r.Size().Lo
	}
	assert.EqualValues(t, len(covered), merged)
}
