// Package lookup answers "who holds this resource" against a merged dataset.
package lookup

import (
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/gaissmai/bart"
	"lukechampine.com/uint128"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
)

// Index holds a prefix table for addresses and a range ordered ASN list.
// Records are expected to be disjoint, as a merge produces them.
type Index struct {
	table *bart.Table[*records.Record]
	asns  []*records.Record
}

// New indexes the records of stats. Later records replace earlier ones
// holding the same prefix.
func New(stats *records.Stats) *Index {
	idx := &Index{table: new(bart.Table[*records.Record])}
	for _, kind := range []records.Kind{records.KindIPv4, records.KindIPv6} {
		for _, r := range stats.Records(kind) {
			for _, pfx := range r.Prefixes() {
				idx.table.Insert(pfx, r)
			}
		}
	}

	idx.asns = append(idx.asns, stats.ASN...)
	sort.SliceStable(idx.asns, func(i, j int) bool {
		return idx.asns[i].Range().Compare(idx.asns[j].Range()) < 0
	})
	return idx
}

// Size returns the number of indexed IPv4 prefixes, IPv6 prefixes and ASN ranges.
func (idx *Index) Size() (v4, v6, asn int) {
	return idx.table.Size4(), idx.table.Size6(), len(idx.asns)
}

// Lookup finds the record holding query, which may be an address,
// a CIDR prefix, or an AS number with or without the "AS" prefix.
func (idx *Index) Lookup(query string) (*records.Record, bool) {
	r, err := idx.Find(query)
	return r, err == nil
}

// Find is Lookup with the reason for a miss. An unparseable query is a
// ValidationError and an unheld resource is a NotFoundError.
func (idx *Index) Find(query string) (*records.Record, error) {
	q := strings.TrimSpace(query)

	if addr, err := netip.ParseAddr(q); err == nil {
		if r, ok := idx.table.Lookup(addr.Unmap()); ok {
			return r, nil
		}
		return nil, errors.NewNotFoundError("address", q)
	}

	if pfx, err := netip.ParsePrefix(q); err == nil {
		_, r, ok := idx.table.LookupPrefixLPM(pfx.Masked())
		if ok {
			return r, nil
		}
		return nil, errors.NewNotFoundError("prefix", q)
	}

	n, err := parseASN(q)
	if err != nil {
		return nil, errors.NewValidationError("query", query, "not an address, prefix or AS number")
	}
	if r, ok := idx.findASN(n); ok {
		return r, nil
	}
	return nil, errors.NewNotFoundError("asn", q)
}

func (idx *Index) findASN(n uint64) (*records.Record, bool) {
	v := uint128.From64(n)
	i := sort.Search(len(idx.asns), func(i int) bool {
		return idx.asns[i].Range().End.Cmp(v) >= 0
	})
	if i < len(idx.asns) && idx.asns[i].Range().ContainsValue(v) {
		return idx.asns[i], true
	}
	return nil, false
}

func parseASN(q string) (uint64, error) {
	if len(q) > 2 && strings.EqualFold(q[:2], "as") {
		q = q[2:]
	}
	return strconv.ParseUint(q, 10, 32)
}
