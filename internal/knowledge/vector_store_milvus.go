package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Distance   string
	Database   string
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	distance     string

	mu      sync.Mutex
	ensured bool
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "student_docs"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       opts.Address,
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		distance:     formatMilvusDistance(opts.Distance),
	}, nil
}

func formatMilvusDistance(value string) string {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "L2", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

// EnsureCollection 检查集合是否存在，不存在时按指定维度创建并建索引
func (s *milvusVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		s.ensured = true
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "student document chunks",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "source_file",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	var index entity.Index
	index, err = entity.NewIndexHNSW(entity.MetricType(s.distance), 8, 64)
	if err != nil {
		index, err = entity.NewIndexIvfFlat(entity.MetricType(s.distance), 128)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
		// 索引创建失败不影响写入，检索会退化为暴力扫描
		fmt.Printf("warning: failed to create index for collection %s: %v\n", s.collection, err)
	}

	s.ensured = true
	return nil
}

// UpsertBatch 单次批量插入一个文件的全部分块
func (s *milvusVectorStore) UpsertBatch(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	sourceFiles := make([]string, len(records))
	chunkIndexes := make([]int64, len(records))
	texts := make([]string, len(records))
	vectors := make([][]float32, len(records))
	dim := len(records[0].Vector)

	for i, rec := range records {
		if len(rec.Vector) != dim {
			return fmt.Errorf("vector dimension mismatch at chunk %d", rec.ChunkIndex)
		}
		ids[i] = rec.ID
		sourceFiles[i] = rec.SourceFile
		chunkIndexes[i] = int64(rec.ChunkIndex)
		texts[i] = rec.Text
		vectors[i] = rec.Vector
	}

	_, err := s.milvusClient.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("source_file", sourceFiles),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("vector", dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		// 刷新失败不影响插入
		fmt.Printf("warning: failed to flush collection %s: %v\n", s.collection, err)
	}

	return nil
}

// Search 最近邻检索
func (s *milvusVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchHit, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"text", "source_file", "chunk_index"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.MetricType(s.distance),
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	if len(searchResults) == 0 {
		return []SearchHit{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return []SearchHit{}, nil
	}

	var texts, sourceFiles []string
	var chunkIndexes []int64
	for _, field := range result.Fields {
		switch field.Name() {
		case "text":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				texts = col.Data()
			}
		case "source_file":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				sourceFiles = col.Data()
			}
		case "chunk_index":
			if col, ok := field.(*entity.ColumnInt64); ok {
				chunkIndexes = col.Data()
			}
		}
	}

	hits := make([]SearchHit, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		hit := SearchHit{}
		if i < len(texts) {
			hit.Text = texts[i]
		}
		if i < len(sourceFiles) {
			hit.SourceFile = sourceFiles[i]
		}
		if i < len(chunkIndexes) {
			hit.ChunkIndex = int(chunkIndexes[i])
		}
		if i < len(result.Scores) {
			hit.Score = float64(result.Scores[i])
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
