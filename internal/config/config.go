// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/rebota-hq/rebota/pkg/retryx"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	Port        int    `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"rebota"`

	// Ollama-compatible model endpoints
	OllamaBaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	EmbedModel    string `env:"EMBED_MODEL" envDefault:"nomic-embed-text:latest"`
	LLMModel      string `env:"LLM_MODEL" envDefault:"llama3.2:latest"`

	// Vector store
	QdrantURL        string `env:"QDRANT_URL" envDefault:"http://localhost:6333"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"hr_documents"`

	// Ingestion
	SourceDir string `env:"SOURCE_DIR" envDefault:"./documents"`
	// ChunkSize/ChunkOverlap default to the interactive chatbot profile (200/20).
	// The batch-ingestion profile (1000/100) is selected by overriding both.
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"200"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"20"`

	// Retrieval
	RetrieveTopK       int `env:"RETRIEVE_TOP_K" envDefault:"4"`
	ContextTokenBudget int `env:"CONTEXT_TOKEN_BUDGET" envDefault:"2048"`

	// Retry policy shared by the embedding client and index deletion.
	// Fixed delay between attempts, not exponential.
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay       time.Duration `env:"RETRY_DELAY" envDefault:"5s"`

	// Resume matching score fusion weights.
	MatchEmbedWeight float64 `env:"MATCH_EMBED_WEIGHT" envDefault:"0.7"`
	MatchLLMWeight   float64 `env:"MATCH_LLM_WEIGHT" envDefault:"0.3"`

	// HTTP server
	MaxUploadMB           int64         `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Config{}, fmt.Errorf("op=config.Load: %w: chunk overlap %d must be smaller than chunk size %d", errInvalid, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return cfg, nil
}

var errInvalid = fmt.Errorf("invalid configuration")

// RetryPolicy returns the bounded fixed-delay retry policy for transient
// failures (embedding calls, index deletion).
func (c Config) RetryPolicy() retryx.Policy {
	return retryx.Policy{MaxAttempts: c.RetryMaxAttempts, Delay: c.RetryDelay}
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }
