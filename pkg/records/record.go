// Package records defines the allocation record model shared by the merge
// engines: records, their numeric ranges, CIDR blocks, and the datasets
// (headers, summaries and record lists) that parsers produce and writers consume.
package records

import (
	"math"
	"net/netip"
	"strconv"
	"strings"

	"github.com/agentstation/rirstats/pkg/errors"
)

// DefaultCountryCode is used when a line carries no country code.
const DefaultCountryCode = "ZZ"

// Record is one allocation claim. Build records with New or Clone so that
// the range is validated and cached; the zero Record has an empty range.
type Record struct {
	Registry    string
	CountryCode string
	Kind        Kind
	Start       string
	Value       string
	Date        string
	Status      string
	RegID       string
	Extensions  []string
	Source      Source

	rng Range
}

// New builds a record and validates its range.
// For asn and ipv4 the value is a count; for ipv6 it is a prefix length.
func New(source Source, registry, countryCode string, kind Kind, start, value, date, status, regID string, extensions ...string) (*Record, error) {
	if registry == "" {
		return nil, errors.NewValidationError("registry", registry, "cannot be empty")
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	r := &Record{
		Registry:    registry,
		CountryCode: countryCode,
		Kind:        kind,
		Start:       start,
		Value:       value,
		Date:        date,
		Status:      status,
		RegID:       regID,
		Extensions:  extensions,
		Source:      source,
	}

	var err error
	switch kind {
	case KindASN:
		r.rng, err = asnRange(start, value)
	case KindIPv4:
		r.rng, err = ipv4Range(start, value)
	case KindIPv6:
		r.rng, err = ipv6Range(start, value)
	default:
		err = errors.NewValidationError("type", string(kind), "unknown record type")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Range returns the closed numeric range the record claims.
func (r *Record) Range() Range {
	return r.rng
}

// Clone returns a copy of r claiming rng instead, with Start and Value
// rendered for the new range. An ipv6 clone must cover exactly one prefix.
func (r *Record) Clone(rng Range) *Record {
	c := *r
	c.rng = rng
	c.Extensions = append([]string(nil), r.Extensions...)
	switch r.Kind {
	case KindASN:
		c.Start = rng.Start.String()
		c.Value = rng.Size().String()
	case KindIPv4:
		c.Start = addrFrom(rng.Start, 32).String()
		c.Value = rng.Size().String()
	case KindIPv6:
		blocks := rng.Prefixes(128)
		if len(blocks) != 1 {
			panic("records: ipv6 clone of a range that is not a single prefix: " + rng.String())
		}
		c.Start = addrFrom(rng.Start, 128).String()
		c.Value = strconv.Itoa(blocks[0].Bits)
	}
	return &c
}

// CloneBlock is Clone for a CIDR block.
func (r *Record) CloneBlock(b Block) *Record {
	return r.Clone(b.Range())
}

// Prefixes decomposes an IP record into CIDR prefixes.
func (r *Record) Prefixes() []netip.Prefix {
	if !r.Kind.IsIP() {
		return nil
	}
	blocks := r.rng.Prefixes(r.Kind.Width())
	out := make([]netip.Prefix, len(blocks))
	for i, b := range blocks {
		out[i] = b.Prefix()
	}
	return out
}

// String renders the record as a delegated stats line with the source appended.
func (r *Record) String() string {
	var sb strings.Builder
	fields := []string{r.Registry, r.CountryCode, string(r.Kind), r.Start, r.Value, r.Date, r.Status, r.RegID}
	sb.WriteString(strings.Join(fields, "|"))
	for _, ext := range r.Extensions {
		sb.WriteByte('|')
		sb.WriteString(ext)
	}
	sb.WriteByte('|')
	sb.WriteString(string(r.Source))
	return sb.String()
}

func asnRange(start, value string) (Range, error) {
	s, err := strconv.ParseUint(start, 10, 32)
	if err != nil {
		return Range{}, errors.NewValidationError("start", start, "not a valid AS number")
	}
	end, err := endOf(s, value, math.MaxUint32)
	if err != nil {
		return Range{}, err
	}
	return Range64(s, end), nil
}

func ipv4Range(start, value string) (Range, error) {
	addr, err := netip.ParseAddr(start)
	if err != nil || !addr.Is4() {
		return Range{}, errors.NewValidationError("start", start, "not a valid IPv4 address")
	}
	s := addrValue(addr).Lo
	end, err := endOf(s, value, math.MaxUint32)
	if err != nil {
		return Range{}, err
	}
	return Range64(s, end), nil
}

func ipv6Range(start, value string) (Range, error) {
	addr, err := netip.ParseAddr(start)
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return Range{}, errors.NewValidationError("start", start, "not a valid IPv6 address")
	}
	bits, err := strconv.Atoi(value)
	if err != nil || bits < 0 || bits > 128 {
		return Range{}, errors.NewValidationError("value", value, "prefix length must be between 0 and 128")
	}
	b := Block{Start: addrValue(addr), Bits: bits, Width: 128}
	if !b.Start.And(hostMask(128 - bits)).IsZero() {
		return Range{}, errors.NewValidationError("start", start, "not aligned to /"+value)
	}
	return b.Range(), nil
}

// endOf returns start+count-1, rejecting empty counts and overflow past limit.
func endOf(start uint64, value string, limit uint64) (uint64, error) {
	count, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("value", value, "not a valid count")
	}
	if count == 0 {
		return 0, errors.NewValidationError("value", value, "range cannot be empty")
	}
	if count-1 > limit-start {
		return 0, errors.NewValidationError("value", value, "range exceeds the number space")
	}
	return start + count - 1, nil
}
