package handlers

import (
	"net/http"

	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// Preview - GET /api/purchase/preview?ticket_id=
func (h *Handlers) Preview(c *gin.Context) {
	ticketID, ok := ticketIDQuery(c)
	if !ok {
		return
	}

	response, err := h.services.Purchases.Preview(c.Request.Context(), ticketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to build purchase preview")
		return
	}

	c.JSON(http.StatusOK, response)
}

// Claim - POST /api/purchase/claim
// Allocates one stock unit and opens the purchase session.
func (h *Handlers) Claim(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Purchases.Claim(c.Request.Context(), req.TicketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to claim unit")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Confirm - POST /api/purchase/confirm
func (h *Handlers) Confirm(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Purchases.Confirm(c.Request.Context(), req.SessionID, req.TicketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to confirm purchase")
		return
	}

	c.JSON(http.StatusOK, response)
}

// Abandon - POST /api/purchase/abandon
// Releases a claimed unit before confirmation.
func (h *Handlers) Abandon(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.Abandon(c.Request.Context(), req.SessionID, req.TicketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to abandon claim")
		return
	}

	c.Status(http.StatusOK)
}

// Refund - POST /api/purchase/refund
func (h *Handlers) Refund(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.Refund(c.Request.Context(), req.TicketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to refund purchase")
		return
	}

	c.Status(http.StatusOK)
}

// ListPurchases - GET /api/purchases
func (h *Handlers) ListPurchases(c *gin.Context) {
	response, err := h.services.Purchases.ListPurchases(c.Request.Context(), buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to list purchases")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckIn - POST /api/checkins
func (h *Handlers) CheckIn(c *gin.Context) {
	var req models.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.CheckIn(c.Request.Context(), req.TicketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to check in")
		return
	}

	c.Status(http.StatusOK)
}

// CheckinStatus - GET /api/checkins?ticket_id=
func (h *Handlers) CheckinStatus(c *gin.Context) {
	ticketID, ok := ticketIDQuery(c)
	if !ok {
		return
	}

	checkin, err := h.services.Purchases.CheckinStatus(c.Request.Context(), ticketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to look up checkin")
		return
	}

	c.JSON(http.StatusOK, checkin)
}
