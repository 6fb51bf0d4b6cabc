package merger

import (
	"fmt"
	"time"

	"github.com/agentstation/rirstats/pkg/asn"
	"github.com/agentstation/rirstats/pkg/iptrie"
	"github.com/agentstation/rirstats/pkg/records"
)

// Result is the outcome of a merge.
type Result struct {
	// Stats is the merged dataset, ready to be written.
	Stats *records.Stats

	// Engine state, kept for Diff.
	ASN  *asn.Tree
	IPv4 *iptrie.Trie
	IPv6 *iptrie.Trie

	Metadata Metadata
}

// Metadata describes a merge run.
type Metadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Sources lists the identifiers of the merged datasets in input order.
	Sources []string

	Stats Statistics
}

// Statistics holds per-kind record counts.
type Statistics struct {
	In        map[records.Kind]int `json:"in" yaml:"in"`
	Out       map[records.Kind]int `json:"out" yaml:"out"`
	Conflicts int64                `json:"conflicts" yaml:"conflicts"`
}

func newResult(start time.Time) *Result {
	return &Result{
		Metadata: Metadata{
			StartTime: start,
			Sources:   []string{},
			Stats: Statistics{
				In:  make(map[records.Kind]int, len(records.Kinds)),
				Out: make(map[records.Kind]int, len(records.Kinds)),
			},
		},
	}
}

// finalize stamps the end time.
func (r *Result) finalize(end time.Time) {
	r.Metadata.EndTime = end
	r.Metadata.Duration = end.Sub(r.Metadata.StartTime)
}

// TotalIn returns the number of input records across kinds.
func (s Statistics) TotalIn() int {
	n := 0
	for _, v := range s.In {
		n += v
	}
	return n
}

// TotalOut returns the number of merged records across kinds.
func (s Statistics) TotalOut() int {
	n := 0
	for _, v := range s.Out {
		n += v
	}
	return n
}

// Summary returns a one-line description of the merge.
func (r *Result) Summary() string {
	st := r.Metadata.Stats
	return fmt.Sprintf("Merged %d sources: %d records in, %d out (asn %d, ipv4 %d, ipv6 %d), %d conflicts",
		len(r.Metadata.Sources), st.TotalIn(), st.TotalOut(),
		st.Out[records.KindASN], st.Out[records.KindIPv4], st.Out[records.KindIPv6], st.Conflicts)
}
