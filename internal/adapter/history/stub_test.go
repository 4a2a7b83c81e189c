package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebota-hq/rebota/internal/domain"
)

func TestStubDiscardsSaves(t *testing.T) {
	s := NewStub()
	err := s.Save(context.Background(), domain.ChatExchange{
		UserID: "u-1", Question: "q", Answer: "a", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := s.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
