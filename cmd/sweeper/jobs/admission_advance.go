package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/service"
)

// AdmissionAdvanceJob periodically moves every on-sale ticket's admission
// threshold forward, bounded by the live queue depth
type AdmissionAdvanceJob struct {
	tickets  *service.TicketService
	waitlist *service.WaitlistService
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewAdmissionAdvanceJob(tickets *service.TicketService, waitlist *service.WaitlistService, interval time.Duration) *AdmissionAdvanceJob {
	return &AdmissionAdvanceJob{
		tickets:  tickets,
		waitlist: waitlist,
		interval: interval,
		done:     make(chan bool),
	}
}

func (j *AdmissionAdvanceJob) Start(ctx context.Context) {
	slog.Info("Starting admission advance job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.advanceAll(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.advanceAll(ctx)
			case <-j.done:
				slog.Info("Admission advance job stopped")
				return
			}
		}
	}()
}

func (j *AdmissionAdvanceJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *AdmissionAdvanceJob) advanceAll(ctx context.Context) {
	tickets, err := j.tickets.ListOnSale(ctx)
	if err != nil {
		slog.Error("Failed to list on-sale tickets", "error", err)
		return
	}

	for _, ticket := range tickets {
		threshold, err := j.waitlist.AdvanceAdmission(ctx, ticket.ID)
		if err != nil {
			slog.Error("Failed to advance admission",
				"error", err,
				"ticket_id", ticket.ID)
			continue
		}
		slog.Debug("Admission advanced",
			"ticket_id", ticket.ID,
			"admitted_through", threshold)
	}
}
