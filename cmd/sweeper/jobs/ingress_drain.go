package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/service"
)

// IngressDrainJob consumes buffered enqueue intents in batches and applies
// them to the waiting queues. Runs only against the distributed buffer; the
// API process drains its own in-memory buffer.
type IngressDrainJob struct {
	waitlist  *service.WaitlistService
	batchSize int
	interval  time.Duration
	done      chan bool
}

func NewIngressDrainJob(waitlist *service.WaitlistService, batchSize int, interval time.Duration) *IngressDrainJob {
	return &IngressDrainJob{
		waitlist:  waitlist,
		batchSize: batchSize,
		interval:  interval,
		done:      make(chan bool),
	}
}

func (j *IngressDrainJob) Start(ctx context.Context) {
	slog.Info("Starting ingress drain job",
		"batch_size", j.batchSize,
		"interval", j.interval.String())

	go func() {
		for {
			select {
			case <-j.done:
				slog.Info("Ingress drain job stopped")
				return
			default:
			}

			n, err := j.waitlist.DrainIntents(ctx, j.batchSize)
			if err != nil {
				slog.Error("Failed to drain ingress buffer", "error", err)
			}

			// Idle backoff; a busy buffer is drained continuously
			if n == 0 {
				select {
				case <-j.done:
					slog.Info("Ingress drain job stopped")
					return
				case <-time.After(j.interval):
				}
			}
		}
	}()
}

func (j *IngressDrainJob) Stop() {
	close(j.done)
}
