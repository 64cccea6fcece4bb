package knowledge

import (
	"context"
	"time"

	"github.com/campushub/chatbot-go/internal/metrics"
	"go.uber.org/zap"
)

// Retriever 相似度检索：把查询向量化后在向量库里取top-k分块文本。
// 检索失败不向上传播，对话流程用空上下文继续。
type Retriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
	logger   *zap.Logger
}

// NewRetriever 创建检索器，topK非法时回退为3
func NewRetriever(embedder Embedder, store VectorStore, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve 返回与查询最相似的分块文本，按相似度降序。
// 任何失败（向量化、向量库）都降级为空结果并记录日志。
func (r *Retriever) Retrieve(ctx context.Context, query string) []string {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		metrics.RetrievalFailures.Inc()
		r.logger.Warn("Query embedding failed, continuing without context", zap.Error(err))
		return nil
	}

	hits, err := r.store.Search(ctx, vector, r.topK)
	if err != nil {
		metrics.RetrievalFailures.Inc()
		r.logger.Warn("Vector search failed, continuing without context", zap.Error(err))
		return nil
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text)
	}
	return texts
}
