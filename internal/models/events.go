package models

import "time"

// NATS event subjects
const (
	EventWaitlistJoined    = "waitlist.joined"
	EventWaitlistEvicted   = "waitlist.evicted"
	EventUnitReserved      = "unit.reserved"
	EventUnitReleased      = "unit.released"
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseRefunded  = "purchase.refunded"
)

// WaitlistJoinedEvent is published when a buyer enters the waiting queue
type WaitlistJoinedEvent struct {
	TicketID  int64     `json:"ticket_id"`
	BuyerID   string    `json:"buyer_id"`
	Position  int64     `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// UnitReservedEvent is published when a stock unit transitions FREE -> RESERVED
type UnitReservedEvent struct {
	TicketID  int64     `json:"ticket_id"`
	BuyerID   string    `json:"buyer_id"`
	UnitID    string    `json:"unit_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// UnitReleasedEvent is published when a reserved unit returns to the free pool
type UnitReleasedEvent struct {
	TicketID  int64     `json:"ticket_id"`
	UnitID    string    `json:"unit_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseCompletedEvent is published after a purchase is finalized
type PurchaseCompletedEvent struct {
	PurchaseID int64     `json:"purchase_id"`
	TicketID   int64     `json:"ticket_id"`
	BuyerID    string    `json:"buyer_id"`
	UnitID     string    `json:"unit_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// PurchaseRefundedEvent is published after a refund frees a sold unit
type PurchaseRefundedEvent struct {
	PurchaseID int64     `json:"purchase_id"`
	TicketID   int64     `json:"ticket_id"`
	BuyerID    string    `json:"buyer_id"`
	Timestamp  time.Time `json:"timestamp"`
}
