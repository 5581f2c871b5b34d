package errors

import "errors"

// Error kinds of the admission/allocation flow. Handlers map these to HTTP
// statuses; everything else is treated as a storage failure and propagated.
var (
	ErrQueueFull         = errors.New("ingress buffer is full")
	ErrInvalidWaitOrder  = errors.New("buyer has no live queue entry or is not admitted yet")
	ErrAlreadyAttempting = errors.New("buyer already has a purchase attempt in flight")
	ErrAlreadyPurchased  = errors.New("buyer already purchased this ticket")
	ErrStockExhausted    = errors.New("no free stock unit available")
	ErrSessionInvalid    = errors.New("purchase session is missing, expired or mismatched")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrUnitStateConflict = errors.New("stock unit is not in the required state")
	ErrAlreadyCheckedIn  = errors.New("buyer already checked in for this ticket")
	ErrPurchaseNotFound  = errors.New("purchase not found")
)
