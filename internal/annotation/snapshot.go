package annotation

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is one participant's annotation drop in the shared folder. The
// records cover both populated and null annotations.
type Snapshot struct {
	Participant string   `json:"participant"`
	Sequence    int      `json:"sequence"`
	Records     []Record `json:"records"`
}

// EncodeSnapshot serializes a snapshot deterministically: records are
// sorted by certification number and the JSON layout is fixed, so encoding
// the same record set twice yields identical bytes.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	records := make([]Record, len(s.Records))
	copy(records, s.Records)
	sort.Slice(records, func(i, j int) bool {
		return records[i].CertNumber < records[j].CertNumber
	})
	s.Records = records

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeSnapshot parses a snapshot produced by any participant. Unknown
// fields are ignored so older installations can read newer drops.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
