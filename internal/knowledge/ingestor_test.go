package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/campushub/chatbot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmbedder 确定性向量，避免测试依赖外部API
type fakeEmbedder struct {
	dim  int
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dim)
		for j, r := range text {
			vec[j%f.dim] += float32(r)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }
func (f *fakeEmbedder) Ready() bool     { return !f.fail }

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestIngestor(embedder Embedder, store VectorStore) *Ingestor {
	return NewIngestor(NewFileParserManager(), NewChunker(100, 10), embedder, store, nil, zap.NewNop())
}

func TestIngestor_Ingest_TextFile(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4}, store)

	path := writeTempFile(t, "handbook.txt",
		"The cafeteria serves breakfast from 7am.\n\nThe gym closes at midnight.")
	chunks, err := ingestor.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
	assert.Equal(t, 1, store.(*memoryVectorStore).Len())
}

func TestIngestor_Ingest_MultipleChunks(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4}, store)

	var content string
	for i := 0; i < 30; i++ {
		content += "Every student must register for courses before the deadline. "
	}
	path := writeTempFile(t, "rules.txt", content)

	chunks, err := ingestor.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, chunks, 1)
	assert.Equal(t, chunks, store.(*memoryVectorStore).Len())
}

func TestIngestor_Ingest_UnsupportedFormat(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4}, store)

	path := writeTempFile(t, "data.csv", "a,b,c")
	_, err := ingestor.Ingest(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidFileFormat))
	assert.Equal(t, 0, store.(*memoryVectorStore).Len())
}

func TestIngestor_Ingest_EmptyFile(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4}, store)

	path := writeTempFile(t, "empty.txt", "   \n\n  ")
	chunks, err := ingestor.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, chunks)
	assert.Equal(t, 0, store.(*memoryVectorStore).Len())
}

func TestIngestor_Ingest_MissingFile(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4}, store)

	// 文件不可读与无文本等价，返回零分块
	chunks, err := ingestor.Ingest(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, chunks)
}

func TestIngestor_Ingest_EmbeddingFailure(t *testing.T) {
	store := NewMemoryVectorStore()
	ingestor := newTestIngestor(&fakeEmbedder{dim: 4, fail: true}, store)

	path := writeTempFile(t, "handbook.txt", "Scholarship applications are due in March.")
	_, err := ingestor.Ingest(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIngestionFailed))
	// 协作方失败时一个分块都不落
	assert.Equal(t, 0, store.(*memoryVectorStore).Len())
}
