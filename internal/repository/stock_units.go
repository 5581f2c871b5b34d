package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"turnstile/internal/database"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

type StockUnitRepository struct {
	db *database.DB
}

func NewStockUnitRepository(db *database.DB) *StockUnitRepository {
	return &StockUnitRepository{db: db}
}

// Claim locks exactly one FREE unit with a non-blocking skip-if-locked read
// and moves it to RESERVED. Concurrent callers either lock distinct rows or,
// finding none free and unlocked, fail fast with ErrStockExhausted. Nobody
// queues behind another claimer's row lock.
//
// A shared decremented counter was deliberately rejected here: it is a single
// hot spot and can go negative under race without a floor guard.
func (r *StockUnitRepository) Claim(ctx context.Context, ticketID int64, buyerID string) (*models.StockUnit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	unit := &models.StockUnit{TicketID: ticketID, Status: models.UnitReserved}

	selectQuery := `
		SELECT id, unit_no
		FROM stock_units
		WHERE ticket_id = $1 AND status = 'FREE'
		ORDER BY unit_no
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	err = tx.QueryRowContext(ctx, selectQuery, ticketID).Scan(&unit.ID, &unit.UnitNo)
	if err == sql.ErrNoRows {
		// Sold out and lost-the-race are indistinguishable on purpose
		return nil, apperrors.ErrStockExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select free unit: %w", err)
	}

	updateQuery := `
		UPDATE stock_units
		SET status = 'RESERVED', holder_id = $1, reserved_at = NOW(), updated_at = NOW()
		WHERE id = $2`

	if _, err := tx.ExecContext(ctx, updateQuery, buyerID, unit.ID); err != nil {
		return nil, fmt.Errorf("failed to reserve unit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	unit.HolderID = &buyerID
	return unit, nil
}

// Release returns a RESERVED unit to the free pool. The row is locked by its
// known id (an ordinary blocking lock is fine here, there is no contention
// fan-in on a specific unit).
func (r *StockUnitRepository) Release(ctx context.Context, unitID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	checkQuery := `SELECT status FROM stock_units WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, checkQuery, unitID).Scan(&status)
	if err == sql.ErrNoRows {
		return apperrors.ErrUnitStateConflict
	}
	if err != nil {
		return fmt.Errorf("failed to lock unit: %w", err)
	}

	if status != models.UnitReserved {
		return apperrors.ErrUnitStateConflict
	}

	updateQuery := `
		UPDATE stock_units
		SET status = 'FREE', holder_id = NULL, reserved_at = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := tx.ExecContext(ctx, updateQuery, unitID); err != nil {
		return fmt.Errorf("failed to release unit: %w", err)
	}

	return tx.Commit()
}

// FreeCount returns the number of currently claimable units
func (r *StockUnitRepository) FreeCount(ctx context.Context, ticketID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM stock_units WHERE ticket_id = $1 AND status = 'FREE'`
	if err := r.db.QueryRowContext(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count free units: %w", err)
	}
	return count, nil
}

// CountByStatus returns SOLD and RESERVED counts for invariant monitoring
func (r *StockUnitRepository) CountByStatus(ctx context.Context, ticketID int64) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) FROM stock_units WHERE ticket_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// StaleReserved lists units that have sat RESERVED longer than the session
// TTL. The expiry sweep releases those whose session key is already gone.
func (r *StockUnitRepository) StaleReserved(ctx context.Context, olderThan time.Time) ([]models.StockUnit, error) {
	query := `
		SELECT id, ticket_id, unit_no, status, holder_id, reserved_at
		FROM stock_units
		WHERE status = 'RESERVED' AND reserved_at < $1`

	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.StockUnit
	for rows.Next() {
		var unit models.StockUnit
		err := rows.Scan(
			&unit.ID,
			&unit.TicketID,
			&unit.UnitNo,
			&unit.Status,
			&unit.HolderID,
			&unit.ReservedAt,
		)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, rows.Err()
}
