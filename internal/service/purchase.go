package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"turnstile/internal/config"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/external"
	"turnstile/internal/logger"
	"turnstile/internal/metrics"
	"turnstile/internal/models"

	"github.com/google/uuid"
)

// PurchaseService runs the allocation path: duplicate-guard short-circuit,
// exactly-once unit claim, session creation, confirm, refund, check-in, and
// session-expiry reclamation.
type PurchaseService struct {
	waitlist  *WaitlistService
	queue     WaitingQueue
	guard     DuplicateGuard
	sessions  SessionStore
	stock     StockStore
	purchases PurchaseStore
	checkins  CheckinStore
	tickets   TicketStore
	payment   *external.PaymentClient
	nats      EventPublisher
	cfg       config.SaleConfig
}

func NewPurchaseService(
	waitlist *WaitlistService,
	queue WaitingQueue,
	guard DuplicateGuard,
	sessions SessionStore,
	stock StockStore,
	purchases PurchaseStore,
	checkins CheckinStore,
	tickets TicketStore,
	payment *external.PaymentClient,
	nats EventPublisher,
	cfg config.SaleConfig,
) *PurchaseService {
	return &PurchaseService{
		waitlist:  waitlist,
		queue:     queue,
		guard:     guard,
		sessions:  sessions,
		stock:     stock,
		purchases: purchases,
		checkins:  checkins,
		tickets:   tickets,
		payment:   payment,
		nats:      nats,
		cfg:       cfg,
	}
}

// Preview returns ticket metadata and the remaining free-unit count for an
// admitted buyer
func (s *PurchaseService) Preview(ctx context.Context, ticketID int64, buyerID string) (*models.PurchasePreviewResponse, error) {
	if err := s.waitlist.CheckAdmitted(ctx, ticketID, buyerID); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.stock.FreeCount(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	return &models.PurchasePreviewResponse{
		Ticket:    *ticket,
		Remaining: remaining,
	}, nil
}

// Claim allocates one unit to an admitted buyer and opens a purchase session.
// A failed claim is reported, never retried internally: sold-out and
// lost-the-race both surface as StockExhausted.
func (s *PurchaseService) Claim(ctx context.Context, ticketID int64, buyerID string) (*models.ClaimResponse, error) {
	if err := s.waitlist.CheckAdmitted(ctx, ticketID, buyerID); err != nil {
		return nil, err
	}

	purchased, err := s.guard.IsPurchased(ctx, ticketID, buyerID)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, apperrors.ErrAlreadyPurchased
	}

	first, err := s.guard.MarkAttempting(ctx, ticketID, buyerID)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, apperrors.ErrAlreadyAttempting
	}

	unit, err := s.stock.Claim(ctx, ticketID, buyerID)
	if err != nil {
		s.clearAttempting(ctx, ticketID, buyerID)
		if errors.Is(err, apperrors.ErrStockExhausted) {
			metrics.ClaimsExhausted.Inc()
		}
		return nil, err
	}

	session, err := s.sessions.Create(ctx, ticketID, buyerID, unit.ID)
	if err != nil {
		// Undo the reservation so the unit is not stranded until the sweep
		if relErr := s.stock.Release(ctx, unit.ID); relErr != nil {
			logger.WithContext(ctx).Error("Failed to release unit after session failure",
				"error", relErr,
				"unit_id", unit.ID)
		}
		s.clearAttempting(ctx, ticketID, buyerID)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.ClaimsGranted.Inc()
	logger.WithBuyerID(buyerID).Info("Unit claimed",
		"ticket_id", ticketID,
		"unit_id", unit.ID,
		"session_id", session.SessionID)

	event := models.UnitReservedEvent{
		TicketID:  ticketID,
		BuyerID:   buyerID,
		UnitID:    unit.ID,
		SessionID: session.SessionID,
		Timestamp: time.Now(),
	}
	if err := s.nats.Publish(models.EventUnitReserved, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish unit reserved event",
			"error", err,
			"unit_id", unit.ID,
			"event_type", models.EventUnitReserved)
	}

	return &models.ClaimResponse{
		SessionID: session.SessionID,
		UnitID:    unit.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Confirm finalizes a purchase inside the session window. The uniqueness
// re-check, the Purchase and Checkin inserts and the unit commit are one
// transaction in the purchase store. A repeated confirm returns the already
// finalized purchase instead of a duplicate.
func (s *PurchaseService) Confirm(ctx context.Context, sessionID string, ticketID int64, buyerID string) (*models.ConfirmResponse, error) {
	session, err := s.sessions.Validate(ctx, sessionID, ticketID, buyerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionInvalid) {
			// The session is deleted once a confirm lands, so a retry after
			// success must still answer with the finalized purchase
			if purchase, perr := s.purchases.GetByTicketAndBuyer(ctx, ticketID, buyerID); perr == nil && purchase.Status == models.PurchaseCompleted {
				return &models.ConfirmResponse{PurchaseID: purchase.ID}, nil
			}
		}
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if _, err := s.payment.Authorize(ticket.Price, uuid.New().String()); err != nil {
		return nil, fmt.Errorf("payment authorization failed: %w", err)
	}

	purchase, err := s.purchases.Finalize(ctx, ticketID, buyerID, session.UnitID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyPurchased) {
			existing, perr := s.purchases.GetByTicketAndBuyer(ctx, ticketID, buyerID)
			if perr != nil {
				return nil, err
			}
			s.finishConfirm(ctx, session, ticketID, buyerID)
			return &models.ConfirmResponse{PurchaseID: existing.ID}, nil
		}
		return nil, err
	}

	s.finishConfirm(ctx, session, ticketID, buyerID)
	metrics.PurchasesConfirmed.Inc()

	event := models.PurchaseCompletedEvent{
		PurchaseID: purchase.ID,
		TicketID:   ticketID,
		BuyerID:    buyerID,
		UnitID:     session.UnitID,
		Timestamp:  time.Now(),
	}
	if err := s.nats.Publish(models.EventPurchaseCompleted, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish purchase completed event",
			"error", err,
			"purchase_id", purchase.ID,
			"event_type", models.EventPurchaseCompleted)
	}

	return &models.ConfirmResponse{PurchaseID: purchase.ID}, nil
}

// finishConfirm clears the buyer out of the waiting structures. All of it is
// best-effort: the purchase row already landed, and every one of these has a
// TTL or idempotent fallback.
func (s *PurchaseService) finishConfirm(ctx context.Context, session *models.PurchaseSession, ticketID int64, buyerID string) {
	log := logger.WithContext(ctx)

	if err := s.queue.Remove(ctx, ticketID, buyerID); err != nil {
		log.Error("Failed to remove buyer from waiting queue", "error", err, "buyer_id", buyerID)
	}
	if err := s.guard.ClearAttempting(ctx, ticketID, buyerID); err != nil {
		log.Error("Failed to clear attempting mark", "error", err, "buyer_id", buyerID)
	}
	if err := s.guard.MarkPurchased(ctx, ticketID, buyerID); err != nil {
		log.Error("Failed to set purchased mark", "error", err, "buyer_id", buyerID)
	}
	if err := s.sessions.Delete(ctx, session); err != nil {
		log.Error("Failed to delete purchase session", "error", err, "session_id", session.SessionID)
	}
}

// Abandon releases a claimed unit before confirmation on explicit buyer
// request. Expiry handles buyers who simply disappear.
func (s *PurchaseService) Abandon(ctx context.Context, sessionID string, ticketID int64, buyerID string) error {
	session, err := s.sessions.Validate(ctx, sessionID, ticketID, buyerID)
	if err != nil {
		return err
	}

	if err := s.stock.Release(ctx, session.UnitID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, session); err != nil {
		logger.WithContext(ctx).Error("Failed to delete abandoned session",
			"error", err, "session_id", session.SessionID)
	}
	s.clearAttempting(ctx, ticketID, buyerID)

	s.publishUnitReleased(ctx, ticketID, session.UnitID, "abandoned")
	return nil
}

// Refund marks the purchase refunded and returns its unit to the free pool
func (s *PurchaseService) Refund(ctx context.Context, ticketID int64, buyerID string) error {
	purchase, err := s.purchases.Refund(ctx, ticketID, buyerID)
	if err != nil {
		return err
	}

	if err := s.guard.ClearPurchased(ctx, ticketID, buyerID); err != nil {
		logger.WithContext(ctx).Error("Failed to clear purchased mark after refund",
			"error", err, "buyer_id", buyerID)
	}

	event := models.PurchaseRefundedEvent{
		PurchaseID: purchase.ID,
		TicketID:   ticketID,
		BuyerID:    buyerID,
		Timestamp:  time.Now(),
	}
	if err := s.nats.Publish(models.EventPurchaseRefunded, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish purchase refunded event",
			"error", err,
			"purchase_id", purchase.ID,
			"event_type", models.EventPurchaseRefunded)
	}

	return nil
}

// CheckIn flips the buyer's checkin record exactly once
func (s *PurchaseService) CheckIn(ctx context.Context, ticketID int64, buyerID string) error {
	return s.checkins.MarkChecked(ctx, ticketID, buyerID)
}

// CheckinStatus reports whether the buyer's purchase has been checked in
func (s *PurchaseService) CheckinStatus(ctx context.Context, ticketID int64, buyerID string) (*models.Checkin, error) {
	return s.checkins.GetByTicketAndBuyer(ctx, ticketID, buyerID)
}

// ListPurchases returns the buyer's purchase history
func (s *PurchaseService) ListPurchases(ctx context.Context, buyerID string) ([]models.Purchase, error) {
	return s.purchases.ListByBuyer(ctx, buyerID)
}

// ReleaseExpiredSessions reclaims units that sat RESERVED past the session
// TTL with no live session left. This is the mandatory safety net for buyers
// who abandon the flow without an explicit release.
func (s *PurchaseService) ReleaseExpiredSessions(ctx context.Context) (int, error) {
	stale, err := s.stock.StaleReserved(ctx, time.Now().Add(-s.cfg.SessionTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale reservations: %w", err)
	}

	released := 0
	for _, unit := range stale {
		live, err := s.sessions.HasSessionForUnit(ctx, unit.ID)
		if err != nil {
			return released, err
		}
		if live {
			continue
		}

		if err := s.stock.Release(ctx, unit.ID); err != nil {
			if errors.Is(err, apperrors.ErrUnitStateConflict) {
				// A concurrent confirm or release got there first
				continue
			}
			return released, err
		}

		if unit.HolderID != nil {
			s.clearAttempting(ctx, unit.TicketID, *unit.HolderID)
		}

		metrics.SessionsExpired.Inc()
		s.publishUnitReleased(ctx, unit.TicketID, unit.ID, "session_expired")
		released++
	}

	return released, nil
}

func (s *PurchaseService) clearAttempting(ctx context.Context, ticketID int64, buyerID string) {
	if err := s.guard.ClearAttempting(ctx, ticketID, buyerID); err != nil {
		logger.WithContext(ctx).Error("Failed to clear attempting mark",
			"error", err,
			"ticket_id", ticketID,
			"buyer_id", buyerID)
	}
}

func (s *PurchaseService) publishUnitReleased(ctx context.Context, ticketID int64, unitID, reason string) {
	event := models.UnitReleasedEvent{
		TicketID:  ticketID,
		UnitID:    unitID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if err := s.nats.Publish(models.EventUnitReleased, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish unit released event",
			"error", err,
			"unit_id", unitID,
			"event_type", models.EventUnitReleased)
	}
}
