// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heicconv/pkg/types"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func item(id string, status types.Status, finished time.Time) types.QueueItem {
	return types.QueueItem{
		ID:          id,
		Name:        id + ".heic",
		SizeBytes:   4096,
		Status:      status,
		SubmittedAt: finished.Add(-2 * time.Second),
		StartedAt:   finished.Add(-time.Second),
		FinishedAt:  finished,
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	_, path := openStore(t)
	assert.FileExists(t, path)
}

func TestOpenIsReentrant(t *testing.T) {
	s, path := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, item("a", types.StatusCompleted, time.Now())))
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	items, err := again.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRecordAndRecent(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	failed := item("b", types.StatusFailed, base.Add(time.Minute))
	failed.ErrorKind = types.ErrFileTooLarge
	failed.ErrorMessage = "File is too large (150 MB, limit 100 MB)"

	require.NoError(t, s.Record(ctx, item("a", types.StatusCompleted, base)))
	require.NoError(t, s.Record(ctx, failed))
	require.NoError(t, s.Record(ctx, item("c", types.StatusCompleted, base.Add(2*time.Minute))))

	items, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, types.StatusCompleted, items[0].Status)
	assert.Equal(t, 100, items[0].Progress)

	got := items[1]
	assert.Equal(t, "b", got.ID)
	assert.Equal(t, "b.heic", got.Name)
	assert.Equal(t, int64(4096), got.SizeBytes)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, types.ErrFileTooLarge, got.ErrorKind)
	assert.Equal(t, failed.ErrorMessage, got.ErrorMessage)
	assert.True(t, got.FinishedAt.Equal(failed.FinishedAt))
	assert.True(t, got.StartedAt.Equal(failed.StartedAt))
	assert.Empty(t, got.OutputPath, "output paths are not persisted")
}

func TestRecordReplacesSameID(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, item("a", types.StatusFailed, now)))
	require.NoError(t, s.Record(ctx, item("a", types.StatusCompleted, now.Add(time.Second))))

	items, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.StatusCompleted, items[0].Status)
}

func TestRecordRejectsNonTerminal(t *testing.T) {
	s, _ := openStore(t)
	err := s.Record(context.Background(), item("a", types.StatusProcessing, time.Now()))
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	now := time.Now()
	for i, st := range []types.Status{types.StatusCompleted, types.StatusCompleted, types.StatusFailed} {
		require.NoError(t, s.Record(ctx, item(string(rune('a'+i)), st, now)))
	}

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Status]int{types.StatusCompleted: 2, types.StatusFailed: 1}, counts)
}

func TestPrune(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, item("old", types.StatusCompleted, now.Add(-72*time.Hour))))
	require.NoError(t, s.Record(ctx, item("new", types.StatusCompleted, now)))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}
