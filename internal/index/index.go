// Package index owns the vector index lifecycle: destructive full rebuild
// from a chunk corpus and nearest-neighbour queries against the result.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rebota-hq/rebota/internal/adapter/observability"
	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/pkg/retryx"
)

// upsertBatch bounds how many points go to the store per request.
const upsertBatch = 16

// Builder performs full rebuilds. Every rebuild drops the existing collection
// first; there is no incremental update path.
type Builder struct {
	Store       domain.VectorStore
	Embed       domain.Embedder
	Collection  string
	DeleteRetry retryx.Policy
}

// Index is an explicitly owned handle to one built collection. It is returned
// by Rebuild (or opened over an existing collection) and passed to consumers;
// there is no package-level singleton.
type Index struct {
	store      domain.VectorStore
	collection string
}

// Open returns an Index over an already-built collection.
func Open(store domain.VectorStore, collection string) *Index {
	return &Index{store: store, collection: collection}
}

// Rebuild drops the target collection, embeds every chunk and bulk-inserts
// the result. Deletion failures are retried under DeleteRetry and abort the
// rebuild when exhausted. A chunk whose embedding fails is skipped entirely,
// so stored chunks and stored vectors always stay 1:1.
func (b Builder) Rebuild(ctx context.Context, chunks []domain.Chunk) (*Index, error) {
	if b.Collection == "" {
		return nil, fmt.Errorf("%w: collection name required", domain.ErrInvalidArgument)
	}
	err := b.DeleteRetry.Do(ctx, func() error {
		return b.Store.DeleteCollection(ctx, b.Collection)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: drop collection %s: %v", domain.ErrIndexRebuild, b.Collection, err)
	}

	points := make([]domain.VectorPoint, 0, len(chunks))
	skipped := 0
	for _, ch := range chunks {
		vec, err := b.Embed.Embed(ctx, ch.Content)
		if err != nil {
			skipped++
			observability.ChunksSkippedTotal.Inc()
			slog.Warn("chunk skipped, embedding failed",
				slog.String("source", ch.Meta.Source),
				slog.Int("page", ch.Meta.Page),
				slog.Int("start_index", ch.StartIndex),
				slog.Any("error", err))
			continue
		}
		points = append(points, domain.VectorPoint{
			ID:     uuid.NewString(),
			Vector: vec,
			Chunk:  ch,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no chunks could be embedded (%d skipped)", domain.ErrIndexRebuild, skipped)
	}

	if err := b.Store.EnsureCollection(ctx, b.Collection, len(points[0].Vector)); err != nil {
		return nil, fmt.Errorf("%w: create collection %s: %v", domain.ErrIndexRebuild, b.Collection, err)
	}
	for i := 0; i < len(points); i += upsertBatch {
		end := i + upsertBatch
		if end > len(points) {
			end = len(points)
		}
		if err := b.Store.Upsert(ctx, b.Collection, points[i:end]); err != nil {
			return nil, fmt.Errorf("%w: upsert batch %d: %v", domain.ErrIndexRebuild, i/upsertBatch, err)
		}
		observability.ChunksIndexedTotal.Add(float64(end - i))
	}

	slog.Info("index rebuilt",
		slog.String("collection", b.Collection),
		slog.Int("chunks", len(points)),
		slog.Int("skipped", skipped))
	return Open(b.Store, b.Collection), nil
}

// Query returns the top-k hits for the given embedding, best first.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	return ix.store.Search(ctx, ix.collection, vector, topK)
}

var _ domain.Retriever = (*Index)(nil)
