package service

import (
	"context"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/external"
	"turnstile/internal/ingress"
	"turnstile/internal/models"
)

// testEnv wires the services against the in-memory doubles
type testEnv struct {
	queue     *fakeQueue
	gate      *fakeGate
	guard     *fakeGuard
	sessions  *fakeSessions
	stock     *fakeStock
	purchases *fakePurchases
	checkins  *fakeCheckins
	tickets   *fakeTickets
	events    *fakePublisher
	buffer    *ingress.MemoryBuffer

	waitlist *WaitlistService
	purchase *PurchaseService
}

func defaultSaleConfig() config.SaleConfig {
	return config.SaleConfig{
		AdmissionChunkSize:   5,
		PurchasableQueueSize: 100,
		SessionTTL:           time.Minute,
		WaitingSweepWindow:   50,
	}
}

func newTestEnv(ticketID int64, unitCount int, cfg config.SaleConfig) *testEnv {
	env := &testEnv{
		queue:    newFakeQueue(),
		gate:     newFakeGate(),
		guard:    newFakeGuard(),
		sessions: newFakeSessions(cfg.SessionTTL),
		stock:    newFakeStock(ticketID, unitCount),
		checkins: newFakeCheckins(),
		tickets:  newFakeTickets(),
		events:   &fakePublisher{},
		buffer:   ingress.NewMemoryBuffer(256, 20*time.Millisecond),
	}
	env.purchases = newFakePurchases(env.stock, env.checkins)

	payment := external.NewPaymentClient(external.PaymentConfig{})

	env.waitlist = NewWaitlistService(env.queue, env.gate, env.buffer, env.events, cfg)
	env.purchase = NewPurchaseService(
		env.waitlist, env.queue, env.guard, env.sessions,
		env.stock, env.purchases, env.checkins, env.tickets,
		payment, env.events, cfg,
	)
	return env
}

// seedTicket registers ticket metadata so confirm can price the purchase.
// The fake store assigns IDs from 1, matching the ticket IDs the tests use.
func (env *testEnv) seedTicket(title string, quantity int, price int64) int64 {
	ticket := &models.Ticket{
		Title:        title,
		Quantity:     quantity,
		Price:        price,
		SaleStartsAt: time.Now().Add(-time.Hour),
	}
	if err := env.tickets.Create(context.Background(), ticket); err != nil {
		panic(err)
	}
	return ticket.ID
}

// admit enqueues the buyer and leaves the queue shallow enough that the
// buyer is purchasable outright
func (env *testEnv) admit(ticketID int64, buyerID string) {
	if _, err := env.queue.Enqueue(context.Background(), ticketID, buyerID); err != nil {
		panic(err)
	}
}
