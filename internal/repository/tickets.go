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

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts the ticket and materializes one stock unit row per unit of
// quantity in the same transaction, so a ticket is never visible without its
// allocatable units.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tickets (title, quantity, price, sale_starts_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		ticket.Title, ticket.Quantity, ticket.Price, ticket.SaleStartsAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	unitQuery := `
		INSERT INTO stock_units (ticket_id, unit_no, status)
		VALUES ($1, $2, 'FREE')`

	for unitNo := 1; unitNo <= ticket.Quantity; unitNo++ {
		if _, err := tx.ExecContext(ctx, unitQuery, ticket.ID, unitNo); err != nil {
			return fmt.Errorf("failed to materialize stock unit %d: %w", unitNo, err)
		}
	}

	return tx.Commit()
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		SELECT id, title, quantity, price, sale_starts_at, created_at, updated_at
		FROM tickets
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Quantity,
		&ticket.Price,
		&ticket.SaleStartsAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTicketNotFound
	}

	return ticket, err
}

func (r *TicketRepository) List(ctx context.Context) ([]models.Ticket, error) {
	query := `
		SELECT id, title, quantity, price, sale_starts_at, created_at, updated_at
		FROM tickets
		ORDER BY sale_starts_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Quantity,
			&ticket.Price,
			&ticket.SaleStartsAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// ListOnSale returns tickets whose sale window has opened
func (r *TicketRepository) ListOnSale(ctx context.Context, now time.Time) ([]models.Ticket, error) {
	query := `
		SELECT id, title, quantity, price, sale_starts_at, created_at, updated_at
		FROM tickets
		WHERE sale_starts_at <= $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Quantity,
			&ticket.Price,
			&ticket.SaleStartsAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}
