package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
	"turnstile/internal/waitroom"
)

// In-memory doubles for the shared-state collaborators. Each one keeps the
// semantics of its real counterpart under a mutex so the orchestration tests
// can hammer them from many goroutines.

type fakeQueue struct {
	mu      sync.Mutex
	entries map[int64][]string
	expired map[string]bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		entries: make(map[int64][]string),
		expired: make(map[string]bool),
	}
}

func (q *fakeQueue) Enqueue(ctx context.Context, ticketID int64, buyerID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.entries[ticketID] {
		if id == buyerID {
			return int64(i), nil
		}
	}
	q.entries[ticketID] = append(q.entries[ticketID], buyerID)
	return int64(len(q.entries[ticketID]) - 1), nil
}

func (q *fakeQueue) Position(ctx context.Context, ticketID int64, buyerID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.entries[ticketID] {
		if id == buyerID {
			return int64(i), nil
		}
	}
	return 0, apperrors.ErrInvalidWaitOrder
}

func (q *fakeQueue) Heartbeat(ctx context.Context, ticketID int64, buyerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.expired, buyerID)
	return nil
}

func (q *fakeQueue) Remove(ctx context.Context, ticketID int64, buyerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.entries[ticketID]
	for i, id := range entries {
		if id == buyerID {
			q.entries[ticketID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) Depth(ctx context.Context, ticketID int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries[ticketID])), nil
}

func (q *fakeQueue) SweepExpired(ctx context.Context, ticketID int64, window int64) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var evicted []string
	var kept []string
	for i, id := range q.entries[ticketID] {
		if int64(i) < window && q.expired[id] {
			evicted = append(evicted, id)
			continue
		}
		kept = append(kept, id)
	}
	q.entries[ticketID] = kept
	return evicted, nil
}

func (q *fakeQueue) markExpired(buyerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expired[buyerID] = true
}

type fakeGate struct {
	mu         sync.Mutex
	thresholds map[int64]int64
}

func newFakeGate() *fakeGate {
	return &fakeGate{thresholds: make(map[int64]int64)}
}

func (g *fakeGate) Advance(ctx context.Context, ticketID, chunkSize, currentDepth int64) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thresholds[ticketID] = waitroom.NextThreshold(g.thresholds[ticketID], chunkSize, currentDepth)
	return g.thresholds[ticketID], nil
}

func (g *fakeGate) AdmittedThrough(ctx context.Context, ticketID int64) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.thresholds[ticketID], nil
}

type fakeGuard struct {
	mu         sync.Mutex
	attempting map[string]bool
	purchased  map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{
		attempting: make(map[string]bool),
		purchased:  make(map[string]bool),
	}
}

func guardKey(ticketID int64, buyerID string) string {
	return fmt.Sprintf("%d:%s", ticketID, buyerID)
}

func (g *fakeGuard) MarkAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := guardKey(ticketID, buyerID)
	if g.attempting[key] {
		return false, nil
	}
	g.attempting[key] = true
	return true, nil
}

func (g *fakeGuard) ClearAttempting(ctx context.Context, ticketID int64, buyerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attempting, guardKey(ticketID, buyerID))
	return nil
}

func (g *fakeGuard) IsAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempting[guardKey(ticketID, buyerID)], nil
}

func (g *fakeGuard) MarkPurchased(ctx context.Context, ticketID int64, buyerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purchased[guardKey(ticketID, buyerID)] = true
	return nil
}

func (g *fakeGuard) ClearPurchased(ctx context.Context, ticketID int64, buyerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.purchased, guardKey(ticketID, buyerID))
	return nil
}

func (g *fakeGuard) IsPurchased(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.purchased[guardKey(ticketID, buyerID)], nil
}

type fakeSessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*models.PurchaseSession
	byUnit   map[string]string
}

func newFakeSessions(ttl time.Duration) *fakeSessions {
	return &fakeSessions{
		ttl:      ttl,
		sessions: make(map[string]*models.PurchaseSession),
		byUnit:   make(map[string]string),
	}
}

func (s *fakeSessions) Create(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.PurchaseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &models.PurchaseSession{
		SessionID: uuid.New().String(),
		TicketID:  ticketID,
		BuyerID:   buyerID,
		UnitID:    unitID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	s.sessions[session.SessionID] = session
	s.byUnit[unitID] = session.SessionID
	return session, nil
}

func (s *fakeSessions) Get(ctx context.Context, sessionID string) (*models.PurchaseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionInvalid
	}
	return session, nil
}

func (s *fakeSessions) Validate(ctx context.Context, sessionID string, ticketID int64, buyerID string) (*models.PurchaseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TicketID != ticketID || session.BuyerID != buyerID {
		return nil, apperrors.ErrSessionInvalid
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, apperrors.ErrSessionInvalid
	}
	return session, nil
}

func (s *fakeSessions) HasSessionForUnit(ctx context.Context, unitID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUnit[unitID]
	return ok, nil
}

func (s *fakeSessions) Delete(ctx context.Context, session *models.PurchaseSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session.SessionID)
	delete(s.byUnit, session.UnitID)
	return nil
}

// expire simulates the TTL lapsing before the buyer acted
func (s *fakeSessions) expire(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		delete(s.byUnit, session.UnitID)
	}
}

type fakeStock struct {
	mu    sync.Mutex
	units []*models.StockUnit
}

func newFakeStock(ticketID int64, count int) *fakeStock {
	s := &fakeStock{}
	for i := 0; i < count; i++ {
		s.units = append(s.units, &models.StockUnit{
			ID:       uuid.New().String(),
			TicketID: ticketID,
			UnitNo:   i + 1,
			Status:   models.UnitFree,
		})
	}
	return s
}

func (s *fakeStock) Claim(ctx context.Context, ticketID int64, buyerID string) (*models.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range s.units {
		if unit.TicketID != ticketID || unit.Status != models.UnitFree {
			continue
		}
		now := time.Now()
		holder := buyerID
		unit.Status = models.UnitReserved
		unit.HolderID = &holder
		unit.ReservedAt = &now
		claimed := *unit
		return &claimed, nil
	}
	return nil, apperrors.ErrStockExhausted
}

func (s *fakeStock) Release(ctx context.Context, unitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range s.units {
		if unit.ID != unitID {
			continue
		}
		if unit.Status != models.UnitReserved {
			return apperrors.ErrUnitStateConflict
		}
		unit.Status = models.UnitFree
		unit.HolderID = nil
		unit.ReservedAt = nil
		return nil
	}
	return apperrors.ErrUnitStateConflict
}

func (s *fakeStock) FreeCount(ctx context.Context, ticketID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, unit := range s.units {
		if unit.TicketID == ticketID && unit.Status == models.UnitFree {
			n++
		}
	}
	return n, nil
}

func (s *fakeStock) StaleReserved(ctx context.Context, olderThan time.Time) ([]models.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []models.StockUnit
	for _, unit := range s.units {
		if unit.Status == models.UnitReserved && unit.ReservedAt != nil && unit.ReservedAt.Before(olderThan) {
			stale = append(stale, *unit)
		}
	}
	return stale, nil
}

// backdate pushes a unit's reservation time into the past
func (s *fakeStock) backdate(unitID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range s.units {
		if unit.ID == unitID && unit.ReservedAt != nil {
			past := unit.ReservedAt.Add(-d)
			unit.ReservedAt = &past
		}
	}
}

func (s *fakeStock) status(unitID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range s.units {
		if unit.ID == unitID {
			return unit.Status
		}
	}
	return ""
}

type fakePurchases struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[string]*models.Purchase
	stock    *fakeStock
	checkins *fakeCheckins
}

func newFakePurchases(stock *fakeStock, checkins *fakeCheckins) *fakePurchases {
	return &fakePurchases{
		nextID:   1,
		rows:     make(map[string]*models.Purchase),
		stock:    stock,
		checkins: checkins,
	}
}

func (p *fakePurchases) Finalize(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.Purchase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := guardKey(ticketID, buyerID)
	if _, exists := p.rows[key]; exists {
		return nil, apperrors.ErrAlreadyPurchased
	}

	p.stock.mu.Lock()
	for _, unit := range p.stock.units {
		if unit.ID == unitID {
			if unit.Status != models.UnitReserved || unit.HolderID == nil || *unit.HolderID != buyerID {
				p.stock.mu.Unlock()
				return nil, apperrors.ErrUnitStateConflict
			}
			unit.Status = models.UnitSold
		}
	}
	p.stock.mu.Unlock()

	uid := unitID
	purchase := &models.Purchase{
		ID:           p.nextID,
		TicketID:     ticketID,
		BuyerID:      buyerID,
		UnitID:       &uid,
		Status:       models.PurchaseCompleted,
		PurchaseTime: time.Now(),
	}
	p.nextID++
	p.rows[key] = purchase
	p.checkins.add(ticketID, buyerID)
	return purchase, nil
}

func (p *fakePurchases) GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	purchase, ok := p.rows[guardKey(ticketID, buyerID)]
	if !ok {
		return nil, apperrors.ErrPurchaseNotFound
	}
	return purchase, nil
}

func (p *fakePurchases) ListByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Purchase
	for _, purchase := range p.rows {
		if purchase.BuyerID == buyerID {
			out = append(out, *purchase)
		}
	}
	return out, nil
}

func (p *fakePurchases) Refund(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	purchase, ok := p.rows[guardKey(ticketID, buyerID)]
	if !ok {
		return nil, apperrors.ErrPurchaseNotFound
	}
	if purchase.Status != models.PurchaseCompleted {
		return nil, apperrors.ErrUnitStateConflict
	}
	purchase.Status = models.PurchaseRefunded

	if purchase.UnitID != nil {
		p.stock.mu.Lock()
		for _, unit := range p.stock.units {
			if unit.ID == *purchase.UnitID && unit.Status == models.UnitSold {
				unit.Status = models.UnitFree
				unit.HolderID = nil
				unit.ReservedAt = nil
			}
		}
		p.stock.mu.Unlock()
	}
	return purchase, nil
}

func (p *fakePurchases) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rows)
}

type fakeCheckins struct {
	mu   sync.Mutex
	rows map[string]bool
}

func newFakeCheckins() *fakeCheckins {
	return &fakeCheckins{rows: make(map[string]bool)}
}

func (c *fakeCheckins) add(ticketID int64, buyerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[guardKey(ticketID, buyerID)] = false
}

func (c *fakeCheckins) MarkChecked(ctx context.Context, ticketID int64, buyerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := guardKey(ticketID, buyerID)
	checked, ok := c.rows[key]
	if !ok {
		return apperrors.ErrPurchaseNotFound
	}
	if checked {
		return apperrors.ErrAlreadyCheckedIn
	}
	c.rows[key] = true
	return nil
}

func (c *fakeCheckins) GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Checkin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	checked, ok := c.rows[guardKey(ticketID, buyerID)]
	if !ok {
		return nil, apperrors.ErrPurchaseNotFound
	}
	return &models.Checkin{TicketID: ticketID, BuyerID: buyerID, Checked: checked}, nil
}

type fakeTickets struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Ticket
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{nextID: 1, rows: make(map[int64]*models.Ticket)}
}

func (t *fakeTickets) Create(ctx context.Context, ticket *models.Ticket) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket.ID = t.nextID
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	t.nextID++
	t.rows[ticket.ID] = ticket
	return nil
}

func (t *fakeTickets) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket, ok := t.rows[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, nil
}

func (t *fakeTickets) List(ctx context.Context) ([]models.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Ticket
	for _, ticket := range t.rows {
		out = append(out, *ticket)
	}
	return out, nil
}

func (t *fakeTickets) ListOnSale(ctx context.Context, now time.Time) ([]models.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Ticket
	for _, ticket := range t.rows {
		if !ticket.SaleStartsAt.After(now) {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) published(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
