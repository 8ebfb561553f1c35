package consolidator

import (
	"sort"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
)

// Merge combines annotation record sets from independent writers into one
// conflict-resolved table, sorted by certification number. It is a pure
// function: commutative, associative and idempotent, so two participants
// racing to publish converge once either re-merges.
func Merge(sources ...[]annotation.Record) []annotation.Record {
	winners := make(map[string]annotation.Record)
	for _, source := range sources {
		for _, record := range source {
			current, ok := winners[record.CertNumber]
			if !ok || beats(record, current) {
				winners[record.CertNumber] = record
			}
		}
	}

	merged := make([]annotation.Record, 0, len(winners))
	for _, record := range winners {
		merged = append(merged, record)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CertNumber < merged[j].CertNumber
	})
	return merged
}

// beats reports whether a wins over b for the same key: higher version,
// then later creation time, then a populated record over a null one, then
// the larger record ID as a final deterministic tie-break.
func beats(a, b annotation.Record) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.IsNull() != b.IsNull() {
		return !a.IsNull()
	}
	return a.ID > b.ID
}
