package historydb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id string, createdAt time.Time, outcome string) *models.ExportRecord {
	return &models.ExportRecord{
		ID:          id,
		Fingerprint: "fp-" + id,
		Format:      models.FormatCSV,
		Role:        models.RoleAdministrator,
		Filters:     "{}",
		Rows:        10,
		DurationMS:  120,
		Outcome:     outcome,
		CreatedAt:   createdAt,
	}
}

func TestAppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := record(fmt.Sprintf("rec-%d", i), base.Add(time.Duration(i)*time.Hour), "completed")
		require.NoError(t, store.Append(ctx, rec))
	}

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)

	// Newest first.
	assert.Equal(t, "rec-4", records[0].ID)
	assert.Equal(t, "rec-0", records[4].ID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "rec-4", limited[0].ID)
}

func TestAppend_RequiresID(t *testing.T) {
	store := newTestStore(t)
	err := store.Append(context.Background(), &models.ExportRecord{})
	assert.Error(t, err)
}

func TestAppend_SetsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := record("rec-1", time.Time{}, "failed")
	require.NoError(t, store.Append(ctx, rec))

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, record("old-1", base.Add(-100*24*time.Hour), "completed")))
	require.NoError(t, store.Append(ctx, record("old-2", base.Add(-91*24*time.Hour), "failed")))
	require.NoError(t, store.Append(ctx, record("recent", base.Add(-time.Hour), "completed")))

	removed, err := store.Prune(ctx, base.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "recent", records[0].ID)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	logger := common.NewSilentLogger()
	ctx := context.Background()

	store, err := NewStore(logger, dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, record("rec-1", time.Now(), "completed")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(logger, dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
}
