package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/service"
)

// WaitlistExpiryJob evicts waiting entries whose heartbeat lapsed. Only the
// front of each queue is inspected: the queue is time-ordered, so staleness
// concentrates there.
type WaitlistExpiryJob struct {
	tickets  *service.TicketService
	waitlist *service.WaitlistService
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewWaitlistExpiryJob(tickets *service.TicketService, waitlist *service.WaitlistService, interval time.Duration) *WaitlistExpiryJob {
	return &WaitlistExpiryJob{
		tickets:  tickets,
		waitlist: waitlist,
		interval: interval,
		done:     make(chan bool),
	}
}

func (j *WaitlistExpiryJob) Start(ctx context.Context) {
	slog.Info("Starting waitlist expiry job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweepAll(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweepAll(ctx)
			case <-j.done:
				slog.Info("Waitlist expiry job stopped")
				return
			}
		}
	}()
}

func (j *WaitlistExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *WaitlistExpiryJob) sweepAll(ctx context.Context) {
	tickets, err := j.tickets.ListOnSale(ctx)
	if err != nil {
		slog.Error("Failed to list on-sale tickets", "error", err)
		return
	}

	for _, ticket := range tickets {
		evicted, err := j.waitlist.SweepExpired(ctx, ticket.ID)
		if err != nil {
			slog.Error("Failed to sweep waiting queue",
				"error", err,
				"ticket_id", ticket.ID)
			continue
		}
		if evicted > 0 {
			slog.Info("Evicted stale waiting entries",
				"ticket_id", ticket.ID,
				"count", evicted)
		}
	}
}
