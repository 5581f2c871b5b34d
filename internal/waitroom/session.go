package waitroom

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore persists purchase sessions as TTL'd hashes so an unconfirmed
// reservation disappears on its own. A secondary unit key lets the expiry
// sweep ask "does this RESERVED unit still have a live session" without
// knowing the session ID.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "waitroom:session:" + sessionID
}

func unitSessionKey(unitID string) string {
	return "waitroom:unitsession:" + unitID
}

// Create binds the (ticket, buyer, unit) triple to a fresh session ID
func (s *SessionStore) Create(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.PurchaseSession, error) {
	sessionID := uuid.New().String()
	expiresAt := time.Now().Add(s.ttl)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(sessionID),
		"ticket_id", ticketID,
		"buyer_id", buyerID,
		"unit_id", unitID,
		"expires_at", expiresAt.UnixMilli(),
	)
	pipe.PExpire(ctx, sessionKey(sessionID), s.ttl)
	pipe.Set(ctx, unitSessionKey(unitID), sessionID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create purchase session: %w", err)
	}

	return &models.PurchaseSession{
		SessionID: sessionID,
		TicketID:  ticketID,
		BuyerID:   buyerID,
		UnitID:    unitID,
		ExpiresAt: expiresAt,
	}, nil
}

// Get returns the session or ErrSessionInvalid when it expired or never was
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.PurchaseSession, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read purchase session: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrSessionInvalid
	}

	ticketID, err := strconv.ParseInt(fields["ticket_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session ticket_id: %w", err)
	}
	expiresMilli, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session expires_at: %w", err)
	}

	return &models.PurchaseSession{
		SessionID: sessionID,
		TicketID:  ticketID,
		BuyerID:   fields["buyer_id"],
		UnitID:    fields["unit_id"],
		ExpiresAt: time.UnixMilli(expiresMilli),
	}, nil
}

// Validate checks the session exists and is bound to the exact triple the
// caller presents. A mismatch on any of ticket, buyer or expiry fails.
func (s *SessionStore) Validate(ctx context.Context, sessionID string, ticketID int64, buyerID string) (*models.PurchaseSession, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TicketID != ticketID || session.BuyerID != buyerID {
		return nil, apperrors.ErrSessionInvalid
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, apperrors.ErrSessionInvalid
	}
	return session, nil
}

// HasSessionForUnit reports whether a live session still covers the unit
func (s *SessionStore) HasSessionForUnit(ctx context.Context, unitID string) (bool, error) {
	exists, err := s.rdb.Exists(ctx, unitSessionKey(unitID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check unit session: %w", err)
	}
	return exists > 0, nil
}

// Delete removes a session and its unit marker after confirm or release
func (s *SessionStore) Delete(ctx context.Context, session *models.PurchaseSession) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(session.SessionID))
	pipe.Del(ctx, unitSessionKey(session.UnitID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete purchase session: %w", err)
	}
	return nil
}
