package snapshot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maxwelfreitas/schwordcloud/internal/snapshot"
)

func TestNameAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 4, 5, 14, 30, 45, 0, time.UTC)
	name := snapshot.Name("desk01-alice", 12, ts)
	assert.Equal(t, "Annotation_desk01-alice_000012_2025.04.05_T14.30.45.json", name)

	participant, seq, ok := snapshot.ParseName(name)
	assert.True(t, ok)
	assert.Equal(t, "desk01-alice", participant)
	assert.Equal(t, 12, seq)
}

func TestParseNameRejects(t *testing.T) {
	t.Parallel()

	tests := []string{
		"Annotation.xlsx",
		"notes.json",
		"Annotation_.json",
		"Annotation_only-participant.json",
		"Annotation_p_notanumber_2025.04.05_T14.30.45.json",
	}
	for _, name := range tests {
		_, _, ok := snapshot.ParseName(name)
		assert.False(t, ok, "expected %q to be rejected", name)
	}
}

func TestNextSequence(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 4, 5, 14, 30, 45, 0, time.UTC)
	names := []string{
		snapshot.Name("desk01-alice", 1, ts),
		snapshot.Name("desk01-alice", 7, ts),
		snapshot.Name("desk02-bob", 40, ts),
		"unrelated.txt",
	}

	assert.Equal(t, 8, snapshot.NextSequence(names, "desk01-alice"))
	assert.Equal(t, 41, snapshot.NextSequence(names, "desk02-bob"))
	assert.Equal(t, 1, snapshot.NextSequence(names, "desk03-carol"))
}

func TestParticipantHasNoUnderscores(t *testing.T) {
	t.Parallel()

	id := snapshot.Participant()
	assert.NotEmpty(t, id)
	assert.NotContains(t, id, "_")
}
