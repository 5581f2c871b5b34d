package service

import (
	"context"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/external"
	"turnstile/internal/ingress"
	"turnstile/internal/models"
	"turnstile/internal/repository"
)

// The shared-state collaborators are consumed through small interfaces so the
// orchestration can be exercised against in-memory doubles. The concrete
// implementations live in internal/waitroom and internal/repository.

type WaitingQueue interface {
	Enqueue(ctx context.Context, ticketID int64, buyerID string) (int64, error)
	Position(ctx context.Context, ticketID int64, buyerID string) (int64, error)
	Heartbeat(ctx context.Context, ticketID int64, buyerID string) error
	Remove(ctx context.Context, ticketID int64, buyerID string) error
	Depth(ctx context.Context, ticketID int64) (int64, error)
	SweepExpired(ctx context.Context, ticketID int64, window int64) ([]string, error)
}

type AdmissionGate interface {
	Advance(ctx context.Context, ticketID, chunkSize, currentDepth int64) (int64, error)
	AdmittedThrough(ctx context.Context, ticketID int64) (int64, error)
}

type DuplicateGuard interface {
	MarkAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error)
	ClearAttempting(ctx context.Context, ticketID int64, buyerID string) error
	IsAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error)
	MarkPurchased(ctx context.Context, ticketID int64, buyerID string) error
	ClearPurchased(ctx context.Context, ticketID int64, buyerID string) error
	IsPurchased(ctx context.Context, ticketID int64, buyerID string) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.PurchaseSession, error)
	Get(ctx context.Context, sessionID string) (*models.PurchaseSession, error)
	Validate(ctx context.Context, sessionID string, ticketID int64, buyerID string) (*models.PurchaseSession, error)
	HasSessionForUnit(ctx context.Context, unitID string) (bool, error)
	Delete(ctx context.Context, session *models.PurchaseSession) error
}

type StockStore interface {
	Claim(ctx context.Context, ticketID int64, buyerID string) (*models.StockUnit, error)
	Release(ctx context.Context, unitID string) error
	FreeCount(ctx context.Context, ticketID int64) (int64, error)
	StaleReserved(ctx context.Context, olderThan time.Time) ([]models.StockUnit, error)
}

type PurchaseStore interface {
	Finalize(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.Purchase, error)
	GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error)
	Refund(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error)
}

type CheckinStore interface {
	MarkChecked(ctx context.Context, ticketID int64, buyerID string) error
	GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Checkin, error)
}

type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	List(ctx context.Context) ([]models.Ticket, error)
	ListOnSale(ctx context.Context, now time.Time) ([]models.Ticket, error)
}

// EventPublisher is the NATS client surface the services need
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

type Services struct {
	Tickets   *TicketService
	Waitlist  *WaitlistService
	Purchases *PurchaseService
}

func NewServices(
	repos *repository.Repositories,
	queue WaitingQueue,
	gate AdmissionGate,
	guard DuplicateGuard,
	sessions SessionStore,
	buffer ingress.Buffer,
	natsClient EventPublisher,
	paymentClient *external.PaymentClient,
	saleCfg config.SaleConfig,
) *Services {
	ticketService := NewTicketService(repos.Tickets)
	waitlistService := NewWaitlistService(queue, gate, buffer, natsClient, saleCfg)
	purchaseService := NewPurchaseService(
		waitlistService, queue, guard, sessions,
		repos.StockUnits, repos.Purchases, repos.Checkins, repos.Tickets,
		paymentClient, natsClient, saleCfg,
	)

	return &Services{
		Tickets:   ticketService,
		Waitlist:  waitlistService,
		Purchases: purchaseService,
	}
}
