// Package tokencount estimates token counts for prompt budgeting.
//
// It uses tiktoken-go to tokenize text. Local models served through Ollama
// do not expose their tokenizers, so cl100k_base is used as a reasonable
// approximation across model families.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a shared counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) getEncoding(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[name]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// normalizeModelName maps Ollama model tags to tiktoken-compatible names.
// e.g. "llama3.2:latest" or "nomic-embed-text:latest".
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.IndexByte(model, ':'); i >= 0 {
		model = model[:i]
	}
	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// cl100k_base via the gpt-4 mapping approximates llama, mistral,
		// gemma and the embedding models well enough for budgeting.
		return "gpt-4"
	}
}

// Count counts tokens in text for the given model. If no encoding can be
// loaded it falls back to a rough 4-chars-per-token estimate.
func (c *Counter) Count(text, model string) int {
	enc, err := c.getEncoding(model)
	if err != nil {
		slog.Warn("token encoding unavailable, using estimate",
			slog.String("model", model), slog.Any("error", err))
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Count uses the default counter.
func Count(text, model string) int {
	return DefaultCounter.Count(text, model)
}
