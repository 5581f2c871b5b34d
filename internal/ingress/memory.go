package ingress

import (
	"context"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

// MemoryBuffer is the in-process Buffer backed by a bounded channel
type MemoryBuffer struct {
	ch           chan models.EnqueueIntent
	offerTimeout time.Duration
}

func NewMemoryBuffer(capacity int, offerTimeout time.Duration) *MemoryBuffer {
	return &MemoryBuffer{
		ch:           make(chan models.EnqueueIntent, capacity),
		offerTimeout: offerTimeout,
	}
}

// Offer enqueues the intent, waiting up to the offer timeout for space.
// Cancellation arrives as a context signal, not a panic or an exception.
func (b *MemoryBuffer) Offer(ctx context.Context, intent models.EnqueueIntent) error {
	timer := time.NewTimer(b.offerTimeout)
	defer timer.Stop()

	select {
	case b.ch <- intent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return apperrors.ErrQueueFull
	}
}

// Poll removes one intent without waiting; nil when the buffer is empty
func (b *MemoryBuffer) Poll(ctx context.Context) (*models.EnqueueIntent, error) {
	select {
	case intent := <-b.ch:
		return &intent, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, nil
	}
}

// DrainBatch removes up to n intents. Each item is delivered exactly once
// because channel receives are atomic.
func (b *MemoryBuffer) DrainBatch(ctx context.Context, n int) ([]models.EnqueueIntent, error) {
	var batch []models.EnqueueIntent
	for len(batch) < n {
		select {
		case intent := <-b.ch:
			batch = append(batch, intent)
		case <-ctx.Done():
			return batch, ctx.Err()
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (b *MemoryBuffer) Size(ctx context.Context) (int64, error) {
	return int64(len(b.ch)), nil
}

func (b *MemoryBuffer) Capacity() int64 {
	return int64(cap(b.ch))
}
