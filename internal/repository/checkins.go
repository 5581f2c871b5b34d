package repository

import (
	"context"
	"database/sql"
	"fmt"

	"turnstile/internal/database"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

type CheckinRepository struct {
	db *database.DB
}

func NewCheckinRepository(db *database.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// MarkChecked flips the checkin to checked exactly once. The conditional
// UPDATE is the whole idempotence story: a second attempt matches no row.
func (r *CheckinRepository) MarkChecked(ctx context.Context, ticketID int64, buyerID string) error {
	query := `
		UPDATE checkins
		SET checked = TRUE, checkin_time = NOW()
		WHERE ticket_id = $1 AND buyer_id = $2 AND checked = FALSE`

	result, err := r.db.ExecContext(ctx, query, ticketID, buyerID)
	if err != nil {
		return fmt.Errorf("failed to mark checkin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read checkin result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish "already checked" from "never purchased"
	var checked bool
	existsQuery := `SELECT checked FROM checkins WHERE ticket_id = $1 AND buyer_id = $2`
	err = r.db.QueryRowContext(ctx, existsQuery, ticketID, buyerID).Scan(&checked)
	if err == sql.ErrNoRows {
		return apperrors.ErrPurchaseNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up checkin: %w", err)
	}
	return apperrors.ErrAlreadyCheckedIn
}

func (r *CheckinRepository) GetByTicketAndBuyer(ctx context.Context, ticketID int64, buyerID string) (*models.Checkin, error) {
	checkin := &models.Checkin{}
	query := `
		SELECT id, ticket_id, buyer_id, checked, checkin_time
		FROM checkins
		WHERE ticket_id = $1 AND buyer_id = $2`

	err := r.db.QueryRowContext(ctx, query, ticketID, buyerID).Scan(
		&checkin.ID,
		&checkin.TicketID,
		&checkin.BuyerID,
		&checkin.Checked,
		&checkin.CheckinTime,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrPurchaseNotFound
	}

	return checkin, err
}
