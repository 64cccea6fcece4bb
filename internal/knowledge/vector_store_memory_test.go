package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorStore_EnsureCollection(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, 3))
	// 重复调用幂等
	require.NoError(t, store.EnsureCollection(ctx, 3))
	// 维度变化必须报错
	assert.Error(t, store.EnsureCollection(ctx, 4))
	assert.Error(t, store.EnsureCollection(ctx, 0))
}

func TestMemoryVectorStore_SearchOrdering(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, 2))

	records := []ChunkRecord{
		{ID: "a", Vector: []float32{1, 0}, Text: "exactly east", SourceFile: "a.txt", ChunkIndex: 0},
		{ID: "b", Vector: []float32{0, 1}, Text: "exactly north", SourceFile: "b.txt", ChunkIndex: 0},
		{ID: "c", Vector: []float32{0.9, 0.1}, Text: "mostly east", SourceFile: "c.txt", ChunkIndex: 0},
	}
	require.NoError(t, store.UpsertBatch(ctx, records))

	hits, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exactly east", hits[0].Text)
	assert.Equal(t, "mostly east", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryVectorStore_SearchLimit(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, 2))

	require.NoError(t, store.UpsertBatch(ctx, []ChunkRecord{
		{ID: "a", Vector: []float32{1, 0}, Text: "one"},
		{ID: "b", Vector: []float32{0.5, 0.5}, Text: "two"},
	}))

	hits, err := store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryVectorStore_DimensionMismatch(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, 3))

	err := store.UpsertBatch(ctx, []ChunkRecord{
		{ID: "a", Vector: []float32{1, 0}, Text: "wrong dim"},
	})
	assert.Error(t, err)
}
