package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testMeta(name string) domain.CollectionMeta {
	return domain.CollectionMeta{
		Name:           name,
		DocumentName:   "notes",
		JobID:          "job-1",
		Dimension:      768,
		EmbeddingModel: "nomic-embed-text",
		Status:         domain.CollectionPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "metadata.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have at least one migration")

	// Re-opening the same database must not re-run migrations.
	again, err := NewStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestCollectionStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	collections := store.CollectionStore()
	ctx := context.Background()

	meta := testMeta("kb_notes_abcd1234")
	require.NoError(t, collections.Save(ctx, meta))

	got, err := collections.Get(ctx, "kb_notes_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, meta.Name, got.Name)
	assert.Equal(t, meta.DocumentName, got.DocumentName)
	assert.Equal(t, meta.JobID, got.JobID)
	assert.Equal(t, meta.Dimension, got.Dimension)
	assert.Equal(t, meta.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, meta.Status, got.Status)
	assert.True(t, meta.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.CompletedAt)
}

func TestCollectionStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.CollectionStore().Get(context.Background(), "kb_missing_00000000")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestCollectionStore_SaveUpdates(t *testing.T) {
	store := setupTestStore(t)
	collections := store.CollectionStore()
	ctx := context.Background()

	meta := testMeta("kb_notes_abcd1234")
	require.NoError(t, collections.Save(ctx, meta))

	completed := time.Now().UTC().Truncate(time.Second)
	meta.Status = domain.CollectionCompleted
	meta.ChunkCount = 42
	meta.CompletedAt = &completed
	require.NoError(t, collections.Save(ctx, meta))

	got, err := collections.Get(ctx, "kb_notes_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionCompleted, got.Status)
	assert.Equal(t, 42, got.ChunkCount)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
}

func TestCollectionStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	collections := store.CollectionStore()
	ctx := context.Background()

	require.NoError(t, collections.Save(ctx, testMeta("kb_notes_abcd1234")))
	require.NoError(t, collections.Delete(ctx, "kb_notes_abcd1234"))

	_, err := collections.Get(ctx, "kb_notes_abcd1234")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	// Deleting again is harmless.
	assert.NoError(t, collections.Delete(ctx, "kb_notes_abcd1234"))
}

func TestCollectionStore_ListOrdered(t *testing.T) {
	store := setupTestStore(t)
	collections := store.CollectionStore()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, name := range []string{"kb_c_00000000", "kb_a_00000000", "kb_b_00000000"} {
		meta := testMeta(name)
		meta.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, collections.Save(ctx, meta))
	}

	metas, err := collections.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, "kb_c_00000000", metas[0].Name)
	assert.Equal(t, "kb_a_00000000", metas[1].Name)
	assert.Equal(t, "kb_b_00000000", metas[2].Name)
}

func TestCollectionStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CollectionStore().Save(context.Background(), testMeta("kb_notes_abcd1234")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.CollectionStore().Get(context.Background(), "kb_notes_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "notes", got.DocumentName)
}
