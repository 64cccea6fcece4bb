package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetriever_Retrieve(t *testing.T) {
	embedder := &fakeEmbedder{dim: 4}
	store := NewMemoryVectorStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, 4))

	// fakeEmbedder是确定性的，相同文本得到相同向量
	texts := []string{
		"Library hours are 8am to 10pm.",
		"The gym offers free classes.",
		"Tuition is due each semester.",
		"Parking permits cost 50 dollars.",
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	records := make([]ChunkRecord, len(texts))
	for i := range texts {
		records[i] = ChunkRecord{ID: string(rune('a' + i)), Vector: vectors[i], Text: texts[i]}
	}
	require.NoError(t, store.UpsertBatch(ctx, records))

	retriever := NewRetriever(embedder, store, 3, zap.NewNop())
	results := retriever.Retrieve(ctx, "Library hours are 8am to 10pm.")
	require.Len(t, results, 3)
	assert.Equal(t, "Library hours are 8am to 10pm.", results[0])
}

func TestRetriever_Retrieve_EmbedderFailure(t *testing.T) {
	store := NewMemoryVectorStore()
	retriever := NewRetriever(&fakeEmbedder{dim: 4, fail: true}, store, 3, zap.NewNop())

	// 检索失败降级为空结果，不向上抛错
	results := retriever.Retrieve(context.Background(), "anything")
	assert.Empty(t, results)
}

func TestRetriever_Retrieve_EmptyStore(t *testing.T) {
	store := NewMemoryVectorStore()
	require.NoError(t, store.EnsureCollection(context.Background(), 4))

	retriever := NewRetriever(&fakeEmbedder{dim: 4}, store, 3, zap.NewNop())
	results := retriever.Retrieve(context.Background(), "no documents yet")
	assert.Empty(t, results)
}

func TestNewRetriever_TopKDefault(t *testing.T) {
	retriever := NewRetriever(&fakeEmbedder{dim: 4}, NewMemoryVectorStore(), 0, zap.NewNop())
	assert.Equal(t, 3, retriever.topK)
}
