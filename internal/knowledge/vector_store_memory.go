package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// memoryVectorStore 进程内向量存储，暴力余弦相似度。
// 开发与测试环境的默认provider，不做持久化。
type memoryVectorStore struct {
	mu      sync.RWMutex
	dim     int
	records []ChunkRecord
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() VectorStore {
	return &memoryVectorStore{}
}

func (s *memoryVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension: %d", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = dim
	} else if s.dim != dim {
		return fmt.Errorf("collection dimension mismatch: have %d, want %d", s.dim, dim)
	}
	return nil
}

func (s *memoryVectorStore) UpsertBatch(ctx context.Context, records []ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if s.dim != 0 && len(rec.Vector) != s.dim {
			return fmt.Errorf("vector dimension mismatch: have %d, want %d", len(rec.Vector), s.dim)
		}
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *memoryVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]SearchHit, 0, len(s.records))
	for _, rec := range s.records {
		hits = append(hits, SearchHit{
			Text:       rec.Text,
			SourceFile: rec.SourceFile,
			ChunkIndex: rec.ChunkIndex,
			Score:      cosineSimilarity(rec.Vector, vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *memoryVectorStore) Ready() bool {
	return true
}

// Len 返回当前存储的记录数，仅用于测试与监控
func (s *memoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
