package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

// Store is a minimal REST client to one Qdrant collection. It assumes
// cosine distance and creates the collection on first upsert.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":      vectorstore.PointID(r.Chunk.ParentID, r.Chunk.Index),
			"vector":  r.Vector,
			"payload": payloadFromChunk(r.Chunk),
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, errs.Validation("top_k", "must be a positive integer")
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      uint64         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, models.SearchResult{
			ID:    r.ID,
			Score: r.Score,
			Chunk: chunkFromPayload(r.Payload),
		})
	}
	return results, nil
}

func (s *Store) Info(ctx context.Context) (models.CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	if err := s.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return models.CollectionInfo{}, err
	}
	return models.CollectionInfo{
		Name:      s.collection,
		Records:   resp.Result.PointsCount,
		Dimension: resp.Result.Config.Params.Vectors.Size,
	}, nil
}

func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	if err := s.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errs.Validation("vector", "dimension must be positive")
	}
	url := fmt.Sprintf("%s/collections/%s/exists", s.url, s.collection)
	var existsResp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, url, nil, &existsResp); err == nil && existsResp.Result.Exists {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errs.Store(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errs.Store(fmt.Errorf("qdrant %s %s: %s", method, url, resp.Status))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Store(fmt.Errorf("decoding qdrant response: %w", err))
		}
	}
	return nil
}

func payloadFromChunk(c models.Chunk) map[string]any {
	return map[string]any{
		"parent_id":    c.ParentID,
		"parent_title": c.ParentTitle,
		"division":     c.Division,
		"law_category": c.LawCategory,
		"law_act":      c.LawAct,
		"reference":    c.Reference,
		"chunk_index":  c.Index,
		"total_chunks": c.Total,
		"is_chunked":   c.IsChunked,
		"text":         c.Text,
	}
}

func chunkFromPayload(p map[string]any) models.Chunk {
	c := models.Chunk{Total: 1}
	if v, ok := p["parent_id"].(string); ok {
		c.ParentID = v
	}
	if v, ok := p["parent_title"].(string); ok {
		c.ParentTitle = v
	}
	if v, ok := p["division"].(string); ok {
		c.Division = v
	}
	if v, ok := p["law_category"].(string); ok {
		c.LawCategory = v
	}
	if v, ok := p["law_act"].(string); ok {
		c.LawAct = v
	}
	if v, ok := p["reference"].(string); ok {
		c.Reference = v
	}
	if v, ok := p["chunk_index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := p["total_chunks"].(float64); ok {
		c.Total = int(v)
	}
	if v, ok := p["is_chunked"].(bool); ok {
		c.IsChunked = v
	}
	if v, ok := p["text"].(string); ok {
		c.Text = v
	}
	return c
}
