package ingress

import (
	"context"
	"time"

	"turnstile/internal/models"
)

// Buffer absorbs purchase-intent bursts at the edge and feeds the waiting
// queue at a controlled rate. Offer waits a bounded time and then fails with
// ErrQueueFull; it never blocks indefinitely.
//
// Two implementations exist: an in-process channel buffer for tests and
// single-instance deployments, and a shared-list buffer for production where
// several instances drain the same backlog.
type Buffer interface {
	Offer(ctx context.Context, intent models.EnqueueIntent) error
	Poll(ctx context.Context) (*models.EnqueueIntent, error)
	DrainBatch(ctx context.Context, n int) ([]models.EnqueueIntent, error)
	Size(ctx context.Context) (int64, error)
	Capacity() int64
}

type Config struct {
	Capacity       int
	OfferTimeout   time.Duration
	DrainBatchSize int
	DrainInterval  time.Duration
	// Distributed selects the shared-list implementation
	Distributed bool
}

// Saturation is the fill fraction used as the backpressure health signal
func Saturation(size, capacity int64) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(size) / float64(capacity)
}

// SaturationThreshold marks the fill level above which the service reports
// itself unhealthy so upstream callers shed load.
const SaturationThreshold = 0.9
