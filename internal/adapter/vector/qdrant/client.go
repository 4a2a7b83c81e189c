// Package qdrant provides a minimal Qdrant HTTP client used as the vector
// store for document chunks.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rebota-hq/rebota/internal/domain"
)

// Client is a minimal Qdrant HTTP client implementing domain.VectorStore.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Qdrant client with baseURL and optional apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", c.baseURL, name), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	payload := map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	}
	b, _ := json.Marshal(payload)
	req, err = http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", c.baseURL, name), bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err = c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant create collection status %d", resp.StatusCode)
	}
	return nil
}

// DeleteCollection drops the collection and everything stored in it.
// Deleting a collection that does not exist is not an error.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", c.baseURL, name), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant delete collection status %d", resp.StatusCode)
	}
	return nil
}

// Upsert inserts points into a collection.
func (c *Client) Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error {
	body := map[string]any{"points": make([]map[string]any, 0, len(points))}
	pts := body["points"].([]map[string]any)
	for _, p := range points {
		pts = append(pts, map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"content":     p.Chunk.Content,
				"source":      p.Chunk.Meta.Source,
				"page":        p.Chunk.Meta.Page,
				"start_index": p.Chunk.StartIndex,
			},
		})
	}
	body["points"] = pts
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points", c.baseURL, collection), bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status %d", resp.StatusCode)
	}
	return nil
}

// Search returns the top-k nearest points for vector, highest score first.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int) ([]domain.Hit, error) {
	body := map[string]any{"vector": vector, "limit": topK, "with_payload": true}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status %d", resp.StatusCode)
	}
	var out struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Content    string `json:"content"`
				Source     string `json:"source"`
				Page       int    `json:"page"`
				StartIndex int    `json:"start_index"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, domain.Hit{
			Content:    r.Payload.Content,
			Meta:       domain.Metadata{Source: r.Payload.Source, Page: r.Payload.Page},
			StartIndex: r.Payload.StartIndex,
			Score:      r.Score,
		})
	}
	return hits, nil
}

// Healthcheck verifies the Qdrant API answers.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

var _ domain.VectorStore = (*Client)(nil)
