package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxwelfreitas/schwordcloud/internal/history"
)

// memStore is a minimal in-memory Store for exercising the eligibility
// helper without a database.
type memStore struct {
	entries map[string]history.Entry
}

func (m *memStore) Has(_ context.Context, cert string) (bool, error) {
	_, ok := m.entries[cert]
	return ok, nil
}

func (m *memStore) Get(_ context.Context, cert string) (history.Entry, error) {
	entry, ok := m.entries[cert]
	if !ok {
		return history.Entry{}, history.ErrNotFound
	}
	return entry, nil
}

func (m *memStore) Upsert(_ context.Context, entry history.Entry) error {
	if m.entries == nil {
		m.entries = make(map[string]history.Entry)
	}
	m.entries[entry.CertNumber] = entry
	return nil
}

func day(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestEntryEligibleGracePeriodBoundaries(t *testing.T) {
	t.Parallel()

	searchedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	policy := history.EligibilityPolicy{GracePeriod: day(180), FailureCooldown: day(2)}
	entry := history.Entry{CertNumber: "12345", SearchedAt: searchedAt, Status: history.StatusSuccess}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just searched", searchedAt.Add(time.Minute), false},
		{"ten days later", searchedAt.Add(day(10)), false},
		{"one second before expiry", searchedAt.Add(day(180) - time.Second), false},
		{"exactly at expiry", searchedAt.Add(day(180)), true},
		{"after expiry", searchedAt.Add(day(200)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.EntryEligible(entry, tt.now))
		})
	}
}

func TestEntryEligibleFailedUsesCooldown(t *testing.T) {
	t.Parallel()

	searchedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	policy := history.EligibilityPolicy{GracePeriod: day(180), FailureCooldown: day(2)}
	entry := history.Entry{CertNumber: "55555", SearchedAt: searchedAt, Status: history.StatusFailed}

	assert.False(t, policy.EntryEligible(entry, searchedAt.Add(day(1))))
	assert.True(t, policy.EntryEligible(entry, searchedAt.Add(day(2))))
	assert.True(t, policy.EntryEligible(entry, searchedAt.Add(day(3))))
}

func TestEligibleUnknownKey(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	policy := history.EligibilityPolicy{GracePeriod: day(180), FailureCooldown: day(2)}

	ok, err := history.Eligible(context.Background(), store, "00000", time.Now(), policy)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEligibleRecentSuccessExcluded(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{}
	require.NoError(t, store.Upsert(context.Background(), history.Entry{
		CertNumber: "12345",
		SearchedAt: now.Add(-day(10)),
		Status:     history.StatusSuccess,
	}))
	policy := history.EligibilityPolicy{GracePeriod: day(180), FailureCooldown: day(2)}

	ok, err := history.Eligible(context.Background(), store, "12345", now, policy)
	require.NoError(t, err)
	assert.False(t, ok)
}
