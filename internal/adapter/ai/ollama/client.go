// Package ollama provides a minimal client for an Ollama-compatible model
// server, covering the embeddings and generate endpoints the pipeline needs.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rebota-hq/rebota/internal/adapter/observability"
	"github.com/rebota-hq/rebota/internal/config"
	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/pkg/retryx"
)

// Client calls an Ollama-compatible HTTP API. Both operations retry under the
// shared fixed-delay policy; 4xx responses are treated as permanent.
type Client struct {
	baseURL    string
	embedModel string
	llmModel   string
	policy     retryx.Policy
	embedHC    *http.Client
	genHC      *http.Client
}

// New constructs a client from config with separate timeouts per operation:
// generation may legitimately take much longer than embedding.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:    cfg.OllamaBaseURL,
		embedModel: cfg.EmbedModel,
		llmModel:   cfg.LLMModel,
		policy:     cfg.RetryPolicy(),
		embedHC:    &http.Client{Timeout: 30 * time.Second},
		genHC:      &http.Client{Timeout: 300 * time.Second},
	}
}

// Embed returns the embedding vector for text. After exhausting retries it
// returns a domain.ErrEmbeddingFailed-wrapped error; callers skip the item.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(map[string]any{
		"model":  c.embedModel,
		"prompt": text,
	})
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	op := func() error {
		start := time.Now()
		err := c.post(ctx, c.embedHC, "/api/embeddings", body, &out)
		observability.ObserveAICall("embed", start, err)
		return err
	}
	if err := c.policy.Do(ctx, op); err != nil {
		slog.Error("embedding failed after retries",
			slog.String("model", c.embedModel),
			slog.Int("attempts", c.policy.MaxAttempts),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from model %s", domain.ErrEmbeddingFailed, c.embedModel)
	}
	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Generate runs a single non-streaming completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"model":  c.llmModel,
		"prompt": prompt,
		"stream": false,
	})
	var out struct {
		Response string `json:"response"`
	}
	op := func() error {
		start := time.Now()
		err := c.post(ctx, c.genHC, "/api/generate", body, &out)
		observability.ObserveAICall("generate", start, err)
		return err
	}
	if err := c.policy.Do(ctx, op); err != nil {
		slog.Error("generation failed after retries",
			slog.String("model", c.llmModel),
			slog.Int("attempts", c.policy.MaxAttempts),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", domain.ErrLLMFailed, err)
	}
	return out.Response, nil
}

// Healthcheck probes the server root; Ollama answers 200 on "/".
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.embedHC.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, body []byte, out any) error {
	// Recreate the request each attempt to avoid reusing consumed bodies.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return retryx.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		snippet := readSnippet(resp.Body, 512)
		slog.Warn("model server 4xx", slog.String("path", path), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
		return retryx.Permanent(fmt.Errorf("%s status %d", path, resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := readSnippet(resp.Body, 512)
		slog.Warn("model server non-2xx", slog.String("path", path), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
		return fmt.Errorf("%s status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", path, err)
	}
	return nil
}

func readSnippet(r io.Reader, n int64) string {
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return string(b)
}
