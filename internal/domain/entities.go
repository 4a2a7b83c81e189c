// Package domain holds the core entities and ports of the RAG pipeline.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrEmbeddingFailed marks an embedding call that exhausted its retries.
	// Callers treat it as "skip this item", never as a fatal pipeline error.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrLLMFailed marks a generation call that exhausted its retries.
	ErrLLMFailed = errors.New("llm generation failed")
	// ErrIndexRebuild marks a failed index rebuild. Fatal for the build pipeline.
	ErrIndexRebuild = errors.New("index rebuild failed")
	ErrInternal     = errors.New("internal error")
)

// Metadata identifies where a piece of text came from.
// Page is 1-based for PDF pages and 0 for whole-file sources.
type Metadata struct {
	Source string
	Page   int
}

// Document is the uniform in-memory representation of one loaded source:
// a single PDF page or a whole text file. Immutable once created.
type Document struct {
	Content string
	Meta    Metadata
}

// Chunk is a fixed-size overlapping segment of a Document, the unit that
// gets embedded and stored. StartIndex is the rune offset of the chunk
// within the source document content.
type Chunk struct {
	Content    string
	Meta       Metadata
	StartIndex int
}

// Hit is one retrieval result: chunk content plus metadata and the
// similarity score the store ranked it by.
type Hit struct {
	Content    string
	Meta       Metadata
	StartIndex int
	Score      float64
}

// ChatExchange is one question/answer pair for a user.
type ChatExchange struct {
	UserID    string
	Question  string
	Answer    string
	Timestamp time.Time
}

// ResumeMatch is the scored result for one resume against a job description.
// Scores are on a 0..100 scale; Rank is 1-based after sorting by CombinedScore.
type ResumeMatch struct {
	ResumeName     string
	EmbeddingScore float64
	LLMScore       float64
	CombinedScore  float64
	Feedback       string
	Rank           int
}

// Ports

// Embedder produces one embedding vector per input text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator invokes the LLM with a prompt and returns the completion text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorPoint is one entry persisted in a vector store collection.
type VectorPoint struct {
	ID     string
	Vector []float32
	Chunk  Chunk
}

// VectorStore persists chunk embeddings and supports nearest-neighbour search.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, vectorSize int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)
}

// Retriever answers nearest-neighbour queries against a built index.
type Retriever interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)
}

// HistoryStore records chat exchanges per user, listed newest first.
// The current implementation is a stub that persists nothing.
type HistoryStore interface {
	Save(ctx context.Context, ex ChatExchange) error
	ListByUser(ctx context.Context, userID string) ([]ChatExchange, error)
}
