package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fsindex/internal/models"
)

func record(id, filename, fullPath string) models.FileRecord {
	return models.FileRecord{
		ObjectID: id,
		Filename: filename,
		FullPath: fullPath,
		RootPath: "/data",
	}
}

func TestIndexPrepareIdempotent(t *testing.T) {
	idx, ctx := testIndex(t, false)

	require.NoError(t, idx.Prepare(ctx))
	require.NoError(t, idx.Prepare(ctx), "preparing twice must not fail")

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIndexInsertAndGet(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))

	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("obj-1", "obj-1.dat", "/data/a/obj-1.dat"),
		record("obj-2", "obj-2.dat", "/data/b/obj-2.dat"),
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	row, err := idx.Get(ctx, "obj-1")
	require.NoError(t, err)
	assert.Equal(t, "obj-1", row.ObjectID)
	assert.Equal(t, "obj-1.dat", row.Filename)
	assert.Equal(t, "/data/a/obj-1.dat", row.FullPath)
	assert.Equal(t, "/data", row.RootPath)
}

func TestIndexInsertConflictFirstWins(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))

	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("dup", "dup.dat", "/data/first/dup.dat"),
	}))
	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("dup", "dup.dat", "/data/second/dup.dat"),
	}), "conflicting insert must be a silent no-op")

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "at most one row per object ID")

	row, err := idx.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "/data/first/dup.dat", row.FullPath, "the first committed write wins")
}

func TestIndexInsertConflictWithinBatch(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))

	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("same", "same.dat", "/data/x/same.dat"),
		record("same", "same.dat", "/data/y/same.dat"),
		record("other", "other.dat", "/data/x/other.dat"),
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexUpsertOverwrites(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))

	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("moved", "a.dat", "/data/old/a.dat"),
	}))
	require.NoError(t, idx.UpsertRecords(ctx, []models.FileRecord{
		record("moved", "b.dat", "/data/new/b.dat"),
		record("fresh", "fresh.dat", "/data/fresh.dat"),
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	row, err := idx.Get(ctx, "moved")
	require.NoError(t, err)
	assert.Equal(t, "/data/new/b.dat", row.FullPath, "upsert must replace the existing row")
	assert.Equal(t, "b.dat", row.Filename)
}

func TestIndexUpsertEmptyBatch(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))
	assert.NoError(t, idx.UpsertRecords(ctx, nil))
}

func TestIndexInsertEmptyBatch(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))
	assert.NoError(t, idx.InsertRecords(ctx, nil))
}

func TestIndexGetMissing(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))

	_, err := idx.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestIndexDropExisting(t *testing.T) {
	idx, ctx := testIndex(t, false)
	require.NoError(t, idx.Prepare(ctx))
	require.NoError(t, idx.InsertRecords(ctx, []models.FileRecord{
		record("stale", "stale.dat", "/data/stale.dat"),
	}))

	recreate := NewIndex(testClient, idx.Table(), true)
	require.NoError(t, recreate.Prepare(ctx))

	count, err := recreate.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "drop-existing must empty the table")
}
