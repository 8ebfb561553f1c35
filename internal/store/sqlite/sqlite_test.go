// Package sqlite_test exercises the SQLite-backed stores against a real
// database file in a temporary directory.
package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/history"
	"github.com/maxwelfreitas/schwordcloud/internal/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "schwordcloud.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestHistoryUpsertReplacesEntry(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	first := history.Entry{
		CertNumber:   "123450712345",
		SearchedAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:       history.StatusFailed,
	}
	require.NoError(t, store.Upsert(ctx, first))

	second := history.Entry{
		CertNumber:   "123450712345",
		SearchedAt:   time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC),
		Status:       history.StatusSuccess,
		ResultDigest: "abc123",
	}
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.Get(ctx, "123450712345")
	require.NoError(t, err)
	assert.Equal(t, history.StatusSuccess, got.Status)
	assert.Equal(t, "abc123", got.ResultDigest)
	assert.True(t, got.SearchedAt.Equal(second.SearchedAt))

	has, err := store.Has(ctx, "123450712345")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHistoryGetMissing(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.True(t, errors.Is(err, history.ErrNotFound))

	has, err := store.Has(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHistorySurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schwordcloud.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	entry := history.Entry{
		CertNumber: "999990100001",
		SearchedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		Status:     history.StatusNoResults,
	}
	require.NoError(t, store.Upsert(ctx, entry))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, err := reopened.Get(ctx, "999990100001")
	require.NoError(t, err)
	assert.Equal(t, history.StatusNoResults, got.Status)
}

func TestAnnotationPutGetAll(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	populated := annotation.Record{
		ID:         "rec-1",
		CertNumber: "12345-07-12345",
		Terms:      []annotation.Term{{Text: "modem", Weight: 9}, {Text: "router", Weight: 4}},
		Source:     annotation.SourceGoogle,
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Origin:     annotation.OriginLocal,
		Version:    1,
	}
	null := annotation.Record{
		ID:         "rec-2",
		CertNumber: "00001-02-00003",
		Source:     annotation.SourceGoogle,
		CreatedAt:  time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
		Origin:     annotation.OriginCloud,
		Version:    3,
	}
	require.NoError(t, store.PutAnnotation(ctx, populated))
	require.NoError(t, store.PutAnnotation(ctx, null))

	got, err := store.GetAnnotation(ctx, "12345-07-12345")
	require.NoError(t, err)
	assert.Equal(t, populated.Terms, got.Terms)
	assert.False(t, got.IsNull())

	gotNull, err := store.GetAnnotation(ctx, "00001-02-00003")
	require.NoError(t, err)
	assert.True(t, gotNull.IsNull())

	all, err := store.AllAnnotations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "00001-02-00003", all[0].CertNumber, "ordered by cert number")
}

func TestAnnotationPutReplacesAndBumpsVersion(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	record := annotation.Record{
		ID:         "rec-1",
		CertNumber: "12345-07-12345",
		Terms:      []annotation.Term{{Text: "antenna", Weight: 2}},
		Source:     annotation.SourceGoogle,
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Origin:     annotation.OriginLocal,
		Version:    1,
	}
	require.NoError(t, store.PutAnnotation(ctx, record))

	record.Version = 2
	record.Terms = []annotation.Term{{Text: "radar", Weight: 7}}
	require.NoError(t, store.PutAnnotation(ctx, record))

	all, err := store.AllAnnotations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].Version)
	assert.Equal(t, "radar", all[0].Terms[0].Text)
}

func TestReplaceAnnotationsSwapsTable(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutAnnotation(ctx, annotation.Record{
		ID: "old", CertNumber: "11111-11-11111", Source: annotation.SourceGoogle,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Origin:    annotation.OriginLocal, Version: 1,
	}))

	replacement := []annotation.Record{
		{
			ID: "new-a", CertNumber: "22222-22-22222", Source: annotation.SourceGoogle,
			Terms:     []annotation.Term{{Text: "sensor", Weight: 5}},
			CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Origin:    annotation.OriginCloud, Version: 2,
		},
		{
			ID: "new-b", CertNumber: "33333-33-33333", Source: annotation.SourceGoogle,
			CreatedAt: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
			Origin:    annotation.OriginLocal, Version: 1,
		},
	}
	require.NoError(t, store.ReplaceAnnotations(ctx, replacement))

	all, err := store.AllAnnotations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "22222-22-22222", all[0].CertNumber)

	_, err = store.GetAnnotation(ctx, "11111-11-11111")
	assert.True(t, errors.Is(err, annotation.ErrNotFound))
}

func TestViewsSatisfyInterfaces(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	var _ history.Store = store.History()
	var _ annotation.Store = store.Annotations()
}
