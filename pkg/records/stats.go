package records

// Stats is one delegated stats dataset, either parsed from a source
// or produced by a merge.
type Stats struct {
	Identifier string
	Headers    []Header
	Summaries  []Summary
	ASN        []*Record
	IPv4       []*Record
	IPv6       []*Record
}

// NewStats returns an empty dataset for the given identifier.
func NewStats(identifier string) *Stats {
	return &Stats{Identifier: identifier}
}

// Add appends a record to the list for its kind.
func (s *Stats) Add(r *Record) {
	switch r.Kind {
	case KindASN:
		s.ASN = append(s.ASN, r)
	case KindIPv4:
		s.IPv4 = append(s.IPv4, r)
	case KindIPv6:
		s.IPv6 = append(s.IPv6, r)
	}
}

// Records returns the record list for a kind.
func (s *Stats) Records(kind Kind) []*Record {
	switch kind {
	case KindASN:
		return s.ASN
	case KindIPv4:
		return s.IPv4
	case KindIPv6:
		return s.IPv6
	}
	return nil
}

// SetRecords replaces the record list for a kind.
func (s *Stats) SetRecords(kind Kind, recs []*Record) {
	switch kind {
	case KindASN:
		s.ASN = recs
	case KindIPv4:
		s.IPv4 = recs
	case KindIPv6:
		s.IPv6 = recs
	}
}

// Len returns the number of records across all kinds.
func (s *Stats) Len() int {
	return len(s.ASN) + len(s.IPv4) + len(s.IPv6)
}

// Filter keeps only the records for which keep returns true.
func (s *Stats) Filter(keep func(*Record) bool) {
	for _, kind := range Kinds {
		recs := s.Records(kind)
		kept := recs[:0]
		for _, r := range recs {
			if keep(r) {
				kept = append(kept, r)
			}
		}
		clear(recs[len(kept):])
		s.SetRecords(kind, kept)
	}
}

// GenerateSummary replaces the summaries with one count per kind.
func (s *Stats) GenerateSummary() {
	s.Summaries = s.Summaries[:0]
	for _, kind := range Kinds {
		s.Summaries = append(s.Summaries, Summary{Registry: s.Identifier, Kind: kind, Count: len(s.Records(kind))})
	}
}

// Lines renders the dataset in file order: headers, summaries, then asn,
// ipv4 and ipv6 records.
func (s *Stats) Lines() []string {
	lines := make([]string, 0, len(s.Headers)+len(s.Summaries)+s.Len())
	for _, h := range s.Headers {
		lines = append(lines, h.String())
	}
	for _, sum := range s.Summaries {
		lines = append(lines, sum.String())
	}
	for _, kind := range Kinds {
		for _, r := range s.Records(kind) {
			lines = append(lines, r.String())
		}
	}
	return lines
}

// Delta is one difference between two merged datasets. Current is nil for
// a removed record and Previous is nil for an added one.
type Delta struct {
	Current  *Record
	Previous *Record
}

// Added reports whether the delta is a new record.
func (d Delta) Added() bool { return d.Previous == nil && d.Current != nil }

// Removed reports whether the delta is a dropped record.
func (d Delta) Removed() bool { return d.Current == nil && d.Previous != nil }

// Changed reports whether both sides exist and differ.
func (d Delta) Changed() bool { return d.Current != nil && d.Previous != nil }
