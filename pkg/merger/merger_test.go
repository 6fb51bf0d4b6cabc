package merger

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

var testPriority = []string{"apnic", "afrinic", "arin", "ripencc", "lacnic", "iana"}

type fixture struct {
	merger *Merger
	clock  *clock.Mock
	log    *logging.TestLogger
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	tl := logging.NewTestLogger(t)
	res, err := resolver.New(resolver.WithPriority(testPriority...), resolver.WithLogger(tl.Logger))
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC))

	m, err := New(append([]Option{WithResolver(res), WithClock(mock)}, opts...)...)
	require.NoError(t, err)
	return fixture{merger: m, clock: mock, log: tl}
}

func rec(t *testing.T, src records.Source, registry string, kind records.Kind, start, value string) *records.Record {
	t.Helper()
	r, err := records.New(src, registry, "ZZ", kind, start, value, "20100101", "assigned", "")
	require.NoError(t, err)
	return r
}

func dataset(t *testing.T, name, startDate string, recs ...*records.Record) *records.Stats {
	t.Helper()
	s := records.NewStats(name)
	if startDate != "" {
		s.Headers = []records.Header{{Version: "2", Registry: name, StartDate: startDate}}
	}
	for _, r := range recs {
		s.Add(r)
	}
	return s
}

func sampleSources(t *testing.T) []*records.Stats {
	return []*records.Stats{
		dataset(t, "afrinic", "19930901",
			rec(t, records.SourceStats, "afrinic", records.KindIPv4, "1.1.1.0", "256"),
			rec(t, records.SourceStats, "afrinic", records.KindASN, "100", "10"),
		),
		dataset(t, "apnic", "19850701",
			rec(t, records.SourceStats, "apnic", records.KindIPv4, "1.1.1.128", "128"),
			rec(t, records.SourceStats, "apnic", records.KindASN, "105", "10"),
			rec(t, records.SourceStats, "apnic", records.KindIPv6, "2001:db8::", "32"),
		),
		dataset(t, "swaps", "",
			rec(t, records.SourceSwap, "ripencc", records.KindIPv4, "2.0.0.0", "1024"),
		),
	}
}

func TestMerge(t *testing.T) {
	f := newFixture(t)

	result, err := f.merger.Merge(context.Background(), sampleSources(t))
	require.NoError(t, err)

	want := []string{
		"2.3|nro|20160301|6|19850701|20160301|+0000",
		"nro|*|asn|*|2|summary",
		"nro|*|ipv4|*|3|summary",
		"nro|*|ipv6|*|1|summary",
		"afrinic|ZZ|asn|100|5|20100101|assigned||e-stats",
		"apnic|ZZ|asn|105|10|20100101|assigned||e-stats",
		"afrinic|ZZ|ipv4|1.1.1.0|128|20100101|assigned||e-stats",
		"apnic|ZZ|ipv4|1.1.1.128|128|20100101|assigned||e-stats",
		"ripencc|ZZ|ipv4|2.0.0.0|1024|20100101|assigned||rir-swap",
		"apnic|ZZ|ipv6|2001:db8::|32|20100101|assigned||e-stats",
	}
	if diff := cmp.Diff(want, result.Stats.Lines()); diff != "" {
		t.Errorf("merged lines mismatch (-want +got):\n%s", diff)
	}

	md := result.Metadata
	assert.Equal(t, []string{"afrinic", "apnic", "swaps"}, md.Sources)
	assert.Equal(t, 2, md.Stats.In[records.KindASN])
	assert.Equal(t, 3, md.Stats.In[records.KindIPv4])
	assert.Equal(t, 6, md.Stats.TotalIn())
	assert.Equal(t, 6, md.Stats.TotalOut())
	assert.EqualValues(t, 2, md.Stats.Conflicts)
	assert.Contains(t, result.Summary(), "Merged 3 sources")
	assert.Zero(t, md.Duration)
}

func TestMergeDeterministic(t *testing.T) {
	f := newFixture(t)

	first, err := f.merger.Merge(context.Background(), sampleSources(t))
	require.NoError(t, err)
	second, err := f.merger.Merge(context.Background(), sampleSources(t))
	require.NoError(t, err)

	assert.Equal(t, strings.Join(first.Stats.Lines(), "\n"), strings.Join(second.Stats.Lines(), "\n"))
	assert.True(t, Diff(first, second).IsEmpty())
}

func TestMergeHeaderWithoutSourceDates(t *testing.T) {
	f := newFixture(t, WithIdentifier("test"), WithVersion("2"))
	f.clock.Set(time.Date(2024, 12, 31, 23, 0, 0, 0, time.FixedZone("AEST", 10*3600)))

	result, err := f.merger.Merge(context.Background(), []*records.Stats{
		dataset(t, "x", "00000000", rec(t, records.SourceStats, "apnic", records.KindASN, "1", "1")),
	})
	require.NoError(t, err)

	require.Len(t, result.Stats.Headers, 1)
	assert.Equal(t, records.Header{
		Version:   "2",
		Registry:  "test",
		Serial:    "20241231",
		Records:   "1",
		StartDate: "20241231",
		EndDate:   "20241231",
		UTCOffset: "+1000",
	}, result.Stats.Headers[0])
	assert.Equal(t, "test", result.Stats.Summaries[0].Registry)
}

func TestMergeEmpty(t *testing.T) {
	f := newFixture(t)
	result, err := f.merger.Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Stats.Len())
	assert.Len(t, result.Stats.Summaries, 3)
	assert.Equal(t, "0", result.Stats.Headers[0].Records)
}

func TestMergeCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.merger.Merge(ctx, sampleSources(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeRejectsMisfiledRecord(t *testing.T) {
	f := newFixture(t)
	bad := records.NewStats("bad")
	bad.ASN = append(bad.ASN, rec(t, records.SourceStats, "apnic", records.KindIPv4, "1.0.0.0", "256"))

	_, err := f.merger.Merge(context.Background(), []*records.Stats{bad})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	var mergeErr *errors.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "asn", mergeErr.Kind)
}

type recorder struct {
	mu  sync.Mutex
	out map[records.Kind]int
}

func (r *recorder) ObserveMerge(kind records.Kind, _, out int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out[kind] = out
}

func TestMergeRecorder(t *testing.T) {
	rc := &recorder{out: map[records.Kind]int{}}
	f := newFixture(t, WithRecorder(rc))

	_, err := f.merger.Merge(context.Background(), sampleSources(t))
	require.NoError(t, err)
	assert.Equal(t, map[records.Kind]int{records.KindASN: 2, records.KindIPv4: 3, records.KindIPv6: 1}, rc.out)
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil resolver", WithResolver(nil)},
		{"nil clock", WithClock(nil)},
		{"empty identifier", WithIdentifier("")},
		{"empty version", WithVersion("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.True(t, errors.IsValidationError(err))
		})
	}

	m, err := New()
	require.NoError(t, err)
	assert.Equal(t, resolver.DefaultPriority, m.Resolver().Priority())
}

func TestMergeLogsPerKind(t *testing.T) {
	f := newFixture(t)
	ctx := logging.WithLogger(context.Background(), f.log.Logger)

	_, err := f.merger.Merge(ctx, sampleSources(t))
	require.NoError(t, err)

	var tagged []string
	for _, line := range f.log.Lines() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "Merged records" {
			tagged = append(tagged, entry["kind"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"asn", "ipv4", "ipv6"}, tagged)
}
