package repository

import (
	"context"
	"database/sql"
	"fmt"

	"turnstile/internal/database"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/lib/pq"
)

type PurchaseRepository struct {
	db *database.DB
}

func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Finalize commits a sale in one transaction: it re-checks that no purchase
// exists for (ticket, buyer), inserts the Purchase and its Checkin row, and
// moves the unit RESERVED -> SOLD. Either all of it lands or none of it does;
// a unit left RESERVED by a failed finalize is reclaimed by session expiry.
func (r *PurchaseRepository) Finalize(ctx context.Context, ticketID int64, buyerID, unitID string) (*models.Purchase, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Closes the race where two confirms slip past the duplicate guard
	var existingID int64
	dupQuery := `SELECT id FROM purchases WHERE ticket_id = $1 AND buyer_id = $2`
	err = tx.QueryRowContext(ctx, dupQuery, ticketID, buyerID).Scan(&existingID)
	if err == nil {
		return nil, apperrors.ErrAlreadyPurchased
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing purchase: %w", err)
	}

	var status string
	var holderID sql.NullString
	unitQuery := `SELECT status, holder_id FROM stock_units WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, unitQuery, unitID).Scan(&status, &holderID)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrUnitStateConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock unit: %w", err)
	}
	if status != models.UnitReserved || !holderID.Valid || holderID.String != buyerID {
		return nil, apperrors.ErrUnitStateConflict
	}

	purchase := &models.Purchase{
		TicketID: ticketID,
		BuyerID:  buyerID,
		UnitID:   &unitID,
		Status:   models.PurchaseCompleted,
	}

	insertQuery := `
		INSERT INTO purchases (ticket_id, buyer_id, unit_id, status)
		VALUES ($1, $2, $3, 'PURCHASED')
		RETURNING id, purchase_time`

	err = tx.QueryRowContext(ctx, insertQuery, ticketID, buyerID, unitID).Scan(
		&purchase.ID, &purchase.PurchaseTime)
	if err != nil {
		// The unique constraint stays authoritative even if the pre-check raced
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, apperrors.ErrAlreadyPurchased
		}
		return nil, fmt.Errorf("failed to insert purchase: %w", err)
	}

	checkinQuery := `
		INSERT INTO checkins (ticket_id, buyer_id, checked)
		VALUES ($1, $2, FALSE)`

	if _, err := tx.ExecContext(ctx, checkinQuery, ticketID, buyerID); err != nil {
		return nil, fmt.Errorf("failed to insert checkin: %w", err)
	}

	commitQuery := `
		UPDATE stock_units
		SET status = 'SOLD', updated_at = NOW()
		WHERE id = $1`

	if _, err := tx.ExecContext(ctx, commitQuery, unitID); err != nil {
		return nil, fmt.Errorf("failed to commit unit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return purchase, nil
}

func (r *PurchaseRepository) GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error) {
	purchase := &models.Purchase{}
	query := `
		SELECT id, ticket_id, buyer_id, unit_id, status, purchase_time
		FROM purchases
		WHERE ticket_id = $1 AND buyer_id = $2`

	err := r.db.QueryRowContext(ctx, query, ticketID, buyerID).Scan(
		&purchase.ID,
		&purchase.TicketID,
		&purchase.BuyerID,
		&purchase.UnitID,
		&purchase.Status,
		&purchase.PurchaseTime,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrPurchaseNotFound
	}

	return purchase, err
}

func (r *PurchaseRepository) ListByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error) {
	query := `
		SELECT id, ticket_id, buyer_id, unit_id, status, purchase_time
		FROM purchases
		WHERE buyer_id = $1
		ORDER BY purchase_time DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var purchase models.Purchase
		err := rows.Scan(
			&purchase.ID,
			&purchase.TicketID,
			&purchase.BuyerID,
			&purchase.UnitID,
			&purchase.Status,
			&purchase.PurchaseTime,
		)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	return purchases, rows.Err()
}

// Refund marks a completed purchase REFUNDED and frees its sold unit in one
// transaction
func (r *PurchaseRepository) Refund(ctx context.Context, ticketID int64, buyerID string) (*models.Purchase, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	purchase := &models.Purchase{TicketID: ticketID, BuyerID: buyerID}
	selectQuery := `
		SELECT id, unit_id, status, purchase_time
		FROM purchases
		WHERE ticket_id = $1 AND buyer_id = $2
		FOR UPDATE`

	err = tx.QueryRowContext(ctx, selectQuery, ticketID, buyerID).Scan(
		&purchase.ID, &purchase.UnitID, &purchase.Status, &purchase.PurchaseTime)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock purchase: %w", err)
	}

	if purchase.Status != models.PurchaseCompleted {
		return nil, apperrors.ErrPurchaseNotFound
	}

	updateQuery := `UPDATE purchases SET status = 'REFUNDED' WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, purchase.ID); err != nil {
		return nil, fmt.Errorf("failed to refund purchase: %w", err)
	}

	if purchase.UnitID != nil {
		freeQuery := `
			UPDATE stock_units
			SET status = 'FREE', holder_id = NULL, reserved_at = NULL, updated_at = NOW()
			WHERE id = $1 AND status = 'SOLD'`
		if _, err := tx.ExecContext(ctx, freeQuery, *purchase.UnitID); err != nil {
			return nil, fmt.Errorf("failed to free sold unit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	purchase.Status = models.PurchaseRefunded
	return purchase, nil
}
