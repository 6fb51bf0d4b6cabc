package records

// Kind discriminates the resource a record describes.
type Kind string

// Record kinds.
const (
	KindASN  Kind = "asn"
	KindIPv4 Kind = "ipv4"
	KindIPv6 Kind = "ipv6"
)

// Kinds lists every kind in output order.
var Kinds = []Kind{KindASN, KindIPv4, KindIPv6}

// ParseKind parses the type column of a delegated stats line.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindASN, KindIPv4, KindIPv6:
		return Kind(s), true
	}
	return "", false
}

// Width returns the bit width of the kind's number space.
func (k Kind) Width() int {
	if k == KindIPv6 {
		return 128
	}
	return 32
}

// IsIP reports whether the kind is an address family.
func (k Kind) IsIP() bool {
	return k == KindIPv4 || k == KindIPv6
}

func (k Kind) String() string { return string(k) }

// Source is the provenance of a record.
type Source string

// Known sources.
const (
	// SourceStats marks records from a registry's own delegated stats file.
	SourceStats Source = "e-stats"
	// SourceIANA marks records from the IANA registry.
	SourceIANA Source = "iana"
	// SourceSwap marks synthetic gap-filling records from the swap file.
	SourceSwap Source = "rir-swap"
)

// ParseSource parses a provenance identifier.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceStats, SourceIANA, SourceSwap:
		return Source(s), true
	}
	return "", false
}

func (s Source) String() string { return string(s) }

// FormatRange renders a range in the notation of the kind:
// AS numbers for asn, addresses for ipv4 and ipv6.
func (k Kind) FormatRange(r Range) string {
	if k.IsIP() {
		return addrFrom(r.Start, k.Width()).String() + "-" + addrFrom(r.End, k.Width()).String()
	}
	return "AS" + r.Start.String() + "-AS" + r.End.String()
}
