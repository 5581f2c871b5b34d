package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/database"
	"turnstile/internal/service"
)

// SessionExpiryJob reclaims units left RESERVED past the session TTL. This
// is the safety net for buyers who abandon the flow without an explicit
// release; no unit stays held indefinitely.
type SessionExpiryJob struct {
	purchases *service.PurchaseService
	interval  time.Duration
	ticker    *time.Ticker
	done      chan bool
}

func NewSessionExpiryJob(purchases *service.PurchaseService, interval time.Duration) *SessionExpiryJob {
	return &SessionExpiryJob{
		purchases: purchases,
		interval:  interval,
		done:      make(chan bool),
	}
}

func (j *SessionExpiryJob) Start(ctx context.Context) {
	slog.Info("Starting session expiry job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Session expiry job stopped")
				return
			}
		}
	}()
}

func (j *SessionExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *SessionExpiryJob) sweep(ctx context.Context) {
	released, err := j.purchases.ReleaseExpiredSessions(ctx)
	if err != nil && database.IsRetryable(err) {
		// A dropped connection fails the whole batch; one retry covers the
		// common reconnect case, the next tick covers the rest
		slog.Warn("Session sweep hit a transient database error, retrying", "error", err)
		time.Sleep(time.Second)
		released, err = j.purchases.ReleaseExpiredSessions(ctx)
	}
	if err != nil {
		slog.Error("Failed to release expired sessions", "error", err)
		return
	}
	if released > 0 {
		slog.Info("Released expired reservations", "count", released)
	}
}
