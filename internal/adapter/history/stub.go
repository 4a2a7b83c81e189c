// Package history provides chat history storage adapters.
package history

import (
	"context"
	"log/slog"

	"github.com/rebota-hq/rebota/internal/domain"
)

// Stub is a no-op history store. Saves are logged and discarded; listing
// always returns an empty slice. It keeps the chat endpoints functional
// until a persistent backend is wired in.
type Stub struct{}

// NewStub creates a stub history store.
func NewStub() *Stub { return &Stub{} }

// Save logs the exchange and discards it.
func (s *Stub) Save(ctx context.Context, ex domain.ChatExchange) error {
	slog.InfoContext(ctx, "chat exchange discarded by stub history store",
		slog.String("user_id", ex.UserID))
	return nil
}

// ListByUser always returns an empty history.
func (s *Stub) ListByUser(ctx context.Context, userID string) ([]domain.ChatExchange, error) {
	return []domain.ChatExchange{}, nil
}

var _ domain.HistoryStore = (*Stub)(nil)
