package repository

import (
	"turnstile/internal/database"
)

type Repositories struct {
	Tickets    *TicketRepository
	StockUnits *StockUnitRepository
	Purchases  *PurchaseRepository
	Checkins   *CheckinRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Tickets:    NewTicketRepository(db),
		StockUnits: NewStockUnitRepository(db),
		Purchases:  NewPurchaseRepository(db),
		Checkins:   NewCheckinRepository(db),
	}
}
