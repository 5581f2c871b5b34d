package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// statusFor maps the domain error kinds onto HTTP statuses. Anything
// unrecognized is a storage failure and surfaces as 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrInvalidWaitOrder):
		return http.StatusTooEarly
	case errors.Is(err, apperrors.ErrAlreadyAttempting),
		errors.Is(err, apperrors.ErrAlreadyPurchased),
		errors.Is(err, apperrors.ErrStockExhausted),
		errors.Is(err, apperrors.ErrAlreadyCheckedIn),
		errors.Is(err, apperrors.ErrUnitStateConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrSessionInvalid):
		return http.StatusGone
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrPurchaseNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func buyerID(c *gin.Context) string {
	if v, exists := c.Get("buyer_id"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Ticket handlers

// CreateTicket - POST /api/tickets
func (h *Handlers) CreateTicket(c *gin.Context) {
	var req models.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Tickets.Create(c.Request.Context(), &req)
	if err != nil {
		abortWith(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListTickets - GET /api/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	response, err := h.services.Tickets.List(c.Request.Context())
	if err != nil {
		abortWith(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetTicket - GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.services.Tickets.Get(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ticketIDQuery parses the required ticket_id query parameter
func ticketIDQuery(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("ticket_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id is required"})
		return 0, false
	}
	return id, true
}
