// Package preprocess prepares parsed datasets before they are merged.
package preprocess

import (
	"context"

	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
)

// IANA reg ids and statuses that mark records the IANA dataset is
// authoritative for.
const (
	regIDIANA      = "iana"
	regIDIETF      = "ietf"
	statusIANAPool = "ianapool"
)

// IsIANAOwned reports whether r describes space IANA itself holds:
// IANA or IETF reservations and the unallocated IANA pool.
func IsIANAOwned(r *records.Record) bool {
	return r.RegID == regIDIANA || r.RegID == regIDIETF || r.Status == statusIANAPool
}

// FilterIANA drops the IANA records that only repeat delegations to the
// RIRs. It returns the number of records removed.
func FilterIANA(ctx context.Context, stats *records.Stats) int {
	before := stats.Len()
	stats.Filter(IsIANAOwned)
	removed := before - stats.Len()

	logging.FromContext(ctx).Debug().
		Str("source", stats.Identifier).
		Int("kept", stats.Len()).
		Int("removed", removed).
		Msg("Filtered IANA records")
	return removed
}

// Stamp sets the provenance of every record in stats to src.
func Stamp(stats *records.Stats, src records.Source) {
	for _, kind := range records.Kinds {
		for _, r := range stats.Records(kind) {
			r.Source = src
		}
	}
}

// Sources returns the identifiers of the given datasets in order.
func Sources(stats ...*records.Stats) []string {
	out := make([]string, 0, len(stats))
	for _, s := range stats {
		if s != nil {
			out = append(out, s.Identifier)
		}
	}
	return out
}
