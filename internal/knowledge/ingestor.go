package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/campushub/chatbot-go/internal/errors"
	"github.com/campushub/chatbot-go/internal/metrics"
	"github.com/campushub/chatbot-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ingestor 文档摄取流水线：解析 -> 分块 -> 批量向量化 -> 批量写入向量库。
// 每一步都依赖上一步成功；零分块是正常结果而不是错误。
type Ingestor struct {
	parsers  *FileParserManager
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	db       *gorm.DB // 可为nil，仅用于记录上传历史
	logger   *zap.Logger
	timeout  time.Duration
}

// NewIngestor 创建摄取流水线
func NewIngestor(parsers *FileParserManager, chunker *Chunker, embedder Embedder, store VectorStore, db *gorm.DB, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		parsers:  parsers,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		db:       db,
		logger:   logger,
		timeout:  60 * time.Second,
	}
}

// Ingest 摄取一个文件，返回写入的分块数。
// 返回0且无错误表示文件解析成功但没有可用文本；
// 协作方（嵌入、向量库）失败时整个文件不落任何分块。
func (ing *Ingestor) Ingest(ctx context.Context, filePath string) (int, error) {
	filename := filepath.Base(filePath)

	// 允许列表检查在流水线入口完成，解析器本身不负责拒绝
	if !ing.parsers.Supports(filename) {
		return 0, errors.NewInvalidFileFormatError(filename)
	}

	text := ing.extractText(filePath, filename)
	chunks := ing.chunker.Split(text)
	if len(chunks) == 0 {
		ing.logger.Info("No text extracted from file", zap.String("file", filename))
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ing.timeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// 所有分块单次批量调用向量化
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		metrics.IngestionFailures.Inc()
		ing.logger.Error("Embedding failed during ingestion",
			zap.String("file", filename), zap.Error(err))
		return 0, errors.NewIngestionError(err)
	}

	if err := ing.store.EnsureCollection(ctx, ing.embedder.Dimensions()); err != nil {
		metrics.IngestionFailures.Inc()
		ing.logger.Error("Failed to ensure vector collection",
			zap.String("file", filename), zap.Error(err))
		return 0, errors.NewIngestionError(err)
	}

	records := make([]ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = ChunkRecord{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			Text:       chunk.Text,
			SourceFile: filename,
			ChunkIndex: chunk.Index,
		}
	}

	// 单次批量写入：一个文件的分块要么全部提交要么全部失败
	if err := ing.store.UpsertBatch(ctx, records); err != nil {
		metrics.IngestionFailures.Inc()
		ing.logger.Error("Vector upsert failed during ingestion",
			zap.String("file", filename), zap.Error(err))
		return 0, errors.NewIngestionError(err)
	}

	ing.recordDocument(filename, len(chunks))
	metrics.DocumentsIngested.Inc()
	metrics.ChunksIngested.Add(float64(len(chunks)))
	ing.logger.Info("Document ingested",
		zap.String("file", filename), zap.Int("chunks", len(chunks)))

	return len(chunks), nil
}

// extractText 读取并解析文件。不可读或损坏的文件与"无文本"统一
// 折叠为空字符串，由调用方按零分块处理。
func (ing *Ingestor) extractText(filePath, filename string) string {
	f, err := os.Open(filePath)
	if err != nil {
		ing.logger.Warn("Failed to open file for ingestion",
			zap.String("file", filename), zap.Error(err))
		return ""
	}
	defer f.Close()

	text, err := ing.parsers.ParseFile(f, filename)
	if err != nil {
		ing.logger.Warn("Text extraction failed",
			zap.String("file", filename), zap.Error(err))
		return ""
	}
	return text
}

// recordDocument 记录上传历史，失败不影响摄取结果
func (ing *Ingestor) recordDocument(filename string, chunkCount int) {
	if ing.db == nil {
		return
	}
	doc := &models.IngestedDocument{
		SourceFile: filename,
		ChunkCount: chunkCount,
		CreatedAt:  time.Now(),
	}
	if err := ing.db.Create(doc).Error; err != nil {
		ing.logger.Warn("Failed to record ingested document",
			zap.String("file", filename), zap.Error(err))
	}
}
