package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, registry string, kind Kind, start, value string) *Record {
	t.Helper()
	r, err := New(SourceStats, registry, "ZZ", kind, start, value, "20160301", "assigned", "")
	require.NoError(t, err)
	return r
}

func TestStatsLines(t *testing.T) {
	s := NewStats("nro")
	s.Headers = append(s.Headers, Header{
		Version: DefaultVersion, Registry: "nro", Serial: "20160301", Records: "3",
		StartDate: "19850701", EndDate: "20160301", UTCOffset: "+0000",
	})
	s.Add(mustRecord(t, "apnic", KindIPv6, "2001:200::", "35"))
	s.Add(mustRecord(t, "apnic", KindIPv4, "1.0.0.0", "256"))
	s.Add(mustRecord(t, "apnic", KindASN, "173", "1"))
	s.GenerateSummary()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{
		"2.3|nro|20160301|3|19850701|20160301|+0000",
		"nro|*|asn|*|1|summary",
		"nro|*|ipv4|*|1|summary",
		"nro|*|ipv6|*|1|summary",
		"apnic|ZZ|asn|173|1|20160301|assigned||e-stats",
		"apnic|ZZ|ipv4|1.0.0.0|256|20160301|assigned||e-stats",
		"apnic|ZZ|ipv6|2001:200::|35|20160301|assigned||e-stats",
	}, s.Lines())
}

func TestStatsFilter(t *testing.T) {
	s := NewStats("iana")
	s.Add(mustRecord(t, "iana", KindASN, "0", "1"))
	s.Add(mustRecord(t, "apnic", KindASN, "1", "1"))
	s.Add(mustRecord(t, "iana", KindIPv4, "0.0.0.0", "256"))

	s.Filter(func(r *Record) bool { return r.Registry == "iana" })
	assert.Equal(t, 2, s.Len())
	require.Len(t, s.ASN, 1)
	assert.Equal(t, "0", s.ASN[0].Start)
}

func TestHeaderAndSummaryFields(t *testing.T) {
	fields := []string{"2", "apnic", "20110815", "23486", "19850701", "20110812", "+1000"}
	require.True(t, IsHeader(fields))
	assert.Equal(t, "2|apnic|20110815|23486|19850701|20110812|+1000", HeaderFromFields(fields).String())
	assert.False(t, IsHeader([]string{"3", "apnic", "", "", "", "", ""}))

	sumFields := []string{"apnic", "*", "ipv4", "*", "42", "summary"}
	require.True(t, IsSummary(sumFields))
	sum, err := SummaryFromFields(sumFields)
	require.NoError(t, err)
	assert.Equal(t, Summary{Registry: "apnic", Kind: KindIPv4, Count: 42}, sum)
	assert.Equal(t, "apnic|*|ipv4|*|42|summary", sum.String())

	_, err = SummaryFromFields([]string{"apnic", "*", "ipv4", "*", "many", "summary"})
	assert.Error(t, err)
}

func TestDelta(t *testing.T) {
	r := mustRecord(t, "apnic", KindASN, "1", "1")
	assert.True(t, Delta{Current: r}.Added())
	assert.True(t, Delta{Previous: r}.Removed())
	assert.True(t, Delta{Current: r, Previous: r}.Changed())
	assert.False(t, Delta{Current: r}.Changed())
}
