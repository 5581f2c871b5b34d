package ingress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

func TestMemoryBufferOfferAndPoll(t *testing.T) {
	b := NewMemoryBuffer(4, 10*time.Millisecond)
	ctx := context.Background()

	err := b.Offer(ctx, models.EnqueueIntent{TicketID: 1, BuyerID: "alice"})
	require.NoError(t, err)

	size, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	intent, err := b.Poll(ctx)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, "alice", intent.BuyerID)

	intent, err = b.Poll(ctx)
	require.NoError(t, err)
	assert.Nil(t, intent)
}

func TestMemoryBufferOfferFailsWhenFull(t *testing.T) {
	b := NewMemoryBuffer(2, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, b.Offer(ctx, models.EnqueueIntent{BuyerID: "a"}))
	require.NoError(t, b.Offer(ctx, models.EnqueueIntent{BuyerID: "b"}))

	err := b.Offer(ctx, models.EnqueueIntent{BuyerID: "c"})
	assert.ErrorIs(t, err, apperrors.ErrQueueFull)

	// The failed offer must not have displaced anything
	size, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestMemoryBufferOfferHonorsCancel(t *testing.T) {
	b := NewMemoryBuffer(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, b.Offer(ctx, models.EnqueueIntent{BuyerID: "a"}))

	cancel()
	err := b.Offer(ctx, models.EnqueueIntent{BuyerID: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBufferDrainBatch(t *testing.T) {
	b := NewMemoryBuffer(10, 10*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Offer(ctx, models.EnqueueIntent{BuyerID: fmt.Sprintf("buyer-%d", i)}))
	}

	batch, err := b.DrainBatch(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	rest, err := b.DrainBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	seen := make(map[string]bool)
	for _, intent := range append(batch, rest...) {
		assert.False(t, seen[intent.BuyerID], "intent delivered twice: %s", intent.BuyerID)
		seen[intent.BuyerID] = true
	}
	assert.Len(t, seen, 5)
}

func TestMemoryBufferConcurrentOffers(t *testing.T) {
	const n = 200
	b := NewMemoryBuffer(n, 100*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, b.Offer(ctx, models.EnqueueIntent{BuyerID: fmt.Sprintf("buyer-%d", i)}))
		}(i)
	}
	wg.Wait()

	batch, err := b.DrainBatch(ctx, n)
	require.NoError(t, err)
	assert.Len(t, batch, n)

	seen := make(map[string]bool)
	for _, intent := range batch {
		seen[intent.BuyerID] = true
	}
	assert.Len(t, seen, n)
}

func TestSaturation(t *testing.T) {
	assert.Equal(t, 0.0, Saturation(0, 100))
	assert.Equal(t, 0.5, Saturation(50, 100))
	assert.Equal(t, 1.0, Saturation(100, 100))
	assert.Equal(t, 0.0, Saturation(10, 0))
}
