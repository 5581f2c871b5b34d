package handlers

import (
	"net/http"

	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// Enqueue - POST /api/waitlist
// Absorbs a purchase intent; the position becomes pollable once the intent
// drains into the waiting queue.
func (h *Handlers) Enqueue(c *gin.Context) {
	var req models.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Waitlist.Submit(c.Request.Context(), req.TicketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to enqueue")
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// Position - GET /api/waitlist/position?ticket_id=
func (h *Handlers) Position(c *gin.Context) {
	ticketID, ok := ticketIDQuery(c)
	if !ok {
		return
	}

	response, err := h.services.Waitlist.Position(c.Request.Context(), ticketID, buyerID(c))
	if err != nil {
		abortWith(c, err, "Failed to get position")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckAdmitted - GET /api/waitlist/admitted?ticket_id=
// 200 when the buyer may proceed to allocation, 425 otherwise.
func (h *Handlers) CheckAdmitted(c *gin.Context) {
	ticketID, ok := ticketIDQuery(c)
	if !ok {
		return
	}

	if err := h.services.Waitlist.CheckAdmitted(c.Request.Context(), ticketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to check admission")
		return
	}

	c.Status(http.StatusOK)
}

// Heartbeat - POST /api/waitlist/heartbeat
func (h *Handlers) Heartbeat(c *gin.Context) {
	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Waitlist.Heartbeat(c.Request.Context(), req.TicketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to refresh heartbeat")
		return
	}

	c.Status(http.StatusOK)
}

// Withdraw - DELETE /api/waitlist?ticket_id=
func (h *Handlers) Withdraw(c *gin.Context) {
	ticketID, ok := ticketIDQuery(c)
	if !ok {
		return
	}

	if err := h.services.Waitlist.Withdraw(c.Request.Context(), ticketID, buyerID(c)); err != nil {
		abortWith(c, err, "Failed to withdraw")
		return
	}

	c.Status(http.StatusOK)
}
