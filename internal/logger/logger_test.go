package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")

	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestBuyerIDRoundTrip(t *testing.T) {
	ctx := ContextWithBuyerID(context.Background(), "alice")

	id, ok := BuyerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", id)
}

func TestEmptyContextHasNoIDs(t *testing.T) {
	ctx := context.Background()

	_, ok := RequestIDFromContext(ctx)
	assert.False(t, ok)
	_, ok = BuyerIDFromContext(ctx)
	assert.False(t, ok)
}

func TestNewRequestIDIsUniqueUUID(t *testing.T) {
	first := NewRequestID()
	second := NewRequestID()

	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(first)
	require.NoError(t, err)
}
