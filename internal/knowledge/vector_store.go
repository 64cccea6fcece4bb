package knowledge

import "context"

// ChunkRecord 待写入向量库的分块记录。
// ID 使用随机uuid保证跨上传全局唯一；(SourceFile, ChunkIndex)
// 作为确定性的二级键保存在payload里，便于将来做去重或替换。
type ChunkRecord struct {
	ID         string
	Vector     []float32
	Text       string
	SourceFile string
	ChunkIndex int
}

// SearchHit 向量检索命中结果
type SearchHit struct {
	Text       string
	SourceFile string
	ChunkIndex int
	Score      float64
}

// VectorStore 向量存储抽象
type VectorStore interface {
	// EnsureCollection 惰性创建集合，维度取自Embedder，重复调用为幂等no-op
	EnsureCollection(ctx context.Context, dim int) error
	// UpsertBatch 单次批量写入，一个文件的所有分块要么全部写入要么全部失败
	UpsertBatch(ctx context.Context, records []ChunkRecord) error
	// Search 按相似度降序返回最近邻
	Search(ctx context.Context, vector []float32, limit int) ([]SearchHit, error)
	Ready() bool
}
