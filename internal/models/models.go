package models

import "time"

// EnqueueIntent is the item carried by the ingress buffer
type EnqueueIntent struct {
	TicketID   int64     `json:"ticket_id"`
	BuyerID    string    `json:"buyer_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// API request/response models

type CreateTicketRequest struct {
	Title        string     `json:"title" binding:"required"`
	Quantity     int        `json:"quantity" binding:"required,min=1"`
	Price        int64      `json:"price"`
	SaleStartsAt *time.Time `json:"sale_starts_at"`
}

type CreateTicketResponse struct {
	ID int64 `json:"id"`
}

type ListTicketsResponse []Ticket

type EnqueueRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

// EnqueueResponse acknowledges intent intake only. The position is not known
// until the intent drains from the ingress buffer into the waiting queue;
// buyers poll the position endpoint for it.
type EnqueueResponse struct {
	Status string `json:"status"`
}

type PositionResponse struct {
	Position int64 `json:"position"`
	Admitted bool  `json:"admitted"`
}

type HeartbeatRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type PurchasePreviewResponse struct {
	Ticket    Ticket `json:"ticket"`
	Remaining int64  `json:"remaining"`
}

type ClaimRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type ClaimResponse struct {
	SessionID string    `json:"session_id"`
	UnitID    string    `json:"unit_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	TicketID  int64  `json:"ticket_id" binding:"required"`
}

type ConfirmResponse struct {
	PurchaseID int64 `json:"purchase_id"`
}

type RefundRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type CheckinRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}
