package annotation_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
)

func TestFormatCertNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"123450712345", "12345-07-12345"},
		{"12345-07-12345", "12345-07-12345"},
		{"1234567", "1234567"},
		{"12345678", "12345-67-8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, annotation.FormatCertNumber(tt.raw))
	}
}

func TestStripCertNumberRoundTrip(t *testing.T) {
	t.Parallel()

	raw := "123450712345"
	assert.Equal(t, raw, annotation.StripCertNumber(annotation.FormatCertNumber(raw)))
}

func TestIsNull(t *testing.T) {
	t.Parallel()

	assert.True(t, annotation.Record{}.IsNull())
	assert.False(t, annotation.Record{Terms: []annotation.Term{{Text: "router", Weight: 3}}}.IsNull())
}

func TestEncodeSnapshotDeterministic(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	a := annotation.Record{ID: "a", CertNumber: "11111-22-33333", CreatedAt: createdAt, Origin: annotation.OriginLocal, Version: 1}
	b := annotation.Record{ID: "b", CertNumber: "00001-22-33333", CreatedAt: createdAt, Origin: annotation.OriginCloud, Version: 2}

	first, err := annotation.EncodeSnapshot(annotation.Snapshot{
		Participant: "host-user", Sequence: 3, Records: []annotation.Record{a, b},
	})
	require.NoError(t, err)
	second, err := annotation.EncodeSnapshot(annotation.Snapshot{
		Participant: "host-user", Sequence: 3, Records: []annotation.Record{b, a},
	})
	require.NoError(t, err)

	assert.Equal(t, first, second, "record order must not affect encoding")
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	snap := annotation.Snapshot{
		Participant: "host-user",
		Sequence:    7,
		Records: []annotation.Record{
			{
				ID:         "rec-1",
				CertNumber: "12345-07-12345",
				Terms:      []annotation.Term{{Text: "modem", Weight: 9}},
				Source:     annotation.SourceGoogle,
				CreatedAt:  time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
				Origin:     annotation.OriginLocal,
				Version:    2,
			},
		},
	}

	data, err := annotation.EncodeSnapshot(snap)
	require.NoError(t, err)

	decoded, err := annotation.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := annotation.DecodeSnapshot([]byte("{not json"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	records := []annotation.Record{
		{
			ID:         "rec-1",
			CertNumber: "12345-07-12345",
			Terms:      []annotation.Term{{Text: "modem", Weight: 9}},
			Source:     annotation.SourceGoogle,
			CreatedAt:  time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
			Origin:     annotation.OriginLocal,
			Version:    2,
		},
		{
			ID:         "rec-2",
			CertNumber: "99999-01-00001",
			Source:     annotation.SourceGoogle,
			CreatedAt:  time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
			Origin:     annotation.OriginCloud,
			Version:    1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, annotation.WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "CertNumber", rows[0][1])
	assert.Equal(t, "12345-07-12345", rows[1][1])
	assert.Equal(t, `{"modem":9}`, rows[1][6])
	assert.Equal(t, "{}", rows[2][6], "null annotation exports empty terms object")

	parsed, err := annotation.ParseCSVTime(rows[1][2])
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC), parsed.UTC())
}
