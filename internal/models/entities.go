package models

import (
	"time"
)

// Stock unit states. FREE -> RESERVED -> SOLD, with RESERVED -> FREE on
// expiry or abandonment. No other transitions are legal.
const (
	UnitFree     = "FREE"
	UnitReserved = "RESERVED"
	UnitSold     = "SOLD"
)

// Purchase states.
const (
	PurchaseCompleted = "PURCHASED"
	PurchaseRefunded  = "REFUNDED"
)

// Ticket represents one sellable ticket type of a festival
type Ticket struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        int64     `json:"price" db:"price"`
	SaleStartsAt time.Time `json:"sale_starts_at" db:"sale_starts_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StockUnit is one individually trackable unit of a ticket, materialized at
// ticket-creation time. The unit of exactly-once allocation.
type StockUnit struct {
	ID         string     `json:"id" db:"id"`
	TicketID   int64      `json:"ticket_id" db:"ticket_id"`
	UnitNo     int        `json:"unit_no" db:"unit_no"`
	Status     string     `json:"status" db:"status"`
	HolderID   *string    `json:"holder_id" db:"holder_id"`
	ReservedAt *time.Time `json:"reserved_at" db:"reserved_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// PurchaseSession binds an admitted buyer to one reserved unit pending
// confirmation. Lives only while the unit is RESERVED.
type PurchaseSession struct {
	SessionID string    `json:"session_id"`
	TicketID  int64     `json:"ticket_id"`
	BuyerID   string    `json:"buyer_id"`
	UnitID    string    `json:"unit_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Purchase represents a finalized sale
type Purchase struct {
	ID           int64     `json:"id" db:"id"`
	TicketID     int64     `json:"ticket_id" db:"ticket_id"`
	BuyerID      string    `json:"buyer_id" db:"buyer_id"`
	UnitID       *string   `json:"unit_id" db:"unit_id"`
	Status       string    `json:"status" db:"status"`
	PurchaseTime time.Time `json:"purchase_time" db:"purchase_time"`
}

// Checkin is created alongside a Purchase and flipped to checked exactly once
type Checkin struct {
	ID          int64      `json:"id" db:"id"`
	TicketID    int64      `json:"ticket_id" db:"ticket_id"`
	BuyerID     string     `json:"buyer_id" db:"buyer_id"`
	Checked     bool       `json:"checked" db:"checked"`
	CheckinTime *time.Time `json:"checkin_time" db:"checkin_time"`
}
