package service

import (
	"context"
	"fmt"
	"time"

	"turnstile/internal/logger"
	"turnstile/internal/models"
)

type TicketService struct {
	tickets TicketStore
}

func NewTicketService(tickets TicketStore) *TicketService {
	return &TicketService{tickets: tickets}
}

// Create persists the ticket and materializes its stock units
func (s *TicketService) Create(ctx context.Context, req *models.CreateTicketRequest) (*models.CreateTicketResponse, error) {
	saleStartsAt := time.Now()
	if req.SaleStartsAt != nil {
		saleStartsAt = *req.SaleStartsAt
	}

	ticket := &models.Ticket{
		Title:        req.Title,
		Quantity:     req.Quantity,
		Price:        req.Price,
		SaleStartsAt: saleStartsAt,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	logger.WithContext(ctx).Info("Ticket created",
		"ticket_id", ticket.ID,
		"quantity", ticket.Quantity)

	return &models.CreateTicketResponse{ID: ticket.ID}, nil
}

func (s *TicketService) Get(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

func (s *TicketService) List(ctx context.Context) (models.ListTicketsResponse, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// ListOnSale feeds the background jobs that iterate active sales
func (s *TicketService) ListOnSale(ctx context.Context) ([]models.Ticket, error) {
	return s.tickets.ListOnSale(ctx, time.Now())
}
