package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint   string
	APIKey     string
	Collection string
	Distance   string
	UseTLS     bool
	Timeout    time.Duration
}

type qdrantVectorStore struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	collection string
	distance   string

	mu      sync.Mutex
	ensured bool
}

// NewQdrantVectorStore 创建Qdrant向量存储
func NewQdrantVectorStore(opts QdrantOptions) (VectorStore, error) {
	if opts.Endpoint == "" {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://localhost:6333", scheme)
	}
	if !strings.HasPrefix(opts.Endpoint, "http") {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}
	if opts.Collection == "" {
		opts.Collection = "student_docs"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &qdrantVectorStore{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		collection: opts.Collection,
		distance:   formatDistance(opts.Distance),
	}, nil
}

func formatDistance(value string) string {
	switch strings.ToLower(value) {
	case "dot", "dotproduct":
		return "Dot"
	case "euclid", "l2":
		return "Euclid"
	default:
		return "Cosine"
	}
}

// EnsureCollection 检查集合是否存在，不存在时按指定维度创建
func (s *qdrantVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err == nil && resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		s.ensured = true
		return nil
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dim,
			"distance": s.distance,
		},
	}
	resp, err = s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("create collection %s failed: %s", s.collection, resp.Status)
	}

	s.ensured = true
	return nil
}

// UpsertBatch 批量写入分块记录，单次调用保证整批成败一致
func (s *qdrantVectorStore) UpsertBatch(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			return fmt.Errorf("embedding is empty for chunk %d of %s", rec.ChunkIndex, rec.SourceFile)
		}
		points = append(points, map[string]interface{}{
			"id":     rec.ID,
			"vector": rec.Vector,
			"payload": map[string]interface{}{
				"text":        rec.Text,
				"source_file": rec.SourceFile,
				"chunk_index": rec.ChunkIndex,
			},
		})
	}

	payload := map[string]interface{}{"points": points}
	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant upsert failed: %s %s", resp.Status, string(raw))
	}

	return nil
}

// Search 最近邻检索，按相似度降序返回
func (s *qdrantVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchHit, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vectors": false,
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search failed: %s %s", resp.Status, string(raw))
	}

	var searchResp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		payload := item.Payload
		hit := SearchHit{Score: item.Score}
		if val, ok := payload["text"].(string); ok {
			hit.Text = val
		}
		if val, ok := payload["source_file"].(string); ok {
			hit.SourceFile = val
		}
		if val, ok := payload["chunk_index"].(float64); ok {
			hit.ChunkIndex = int(val)
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func (s *qdrantVectorStore) Ready() bool {
	return s.client != nil
}

func (s *qdrantVectorStore) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}
