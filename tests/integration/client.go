package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"turnstile/internal/models"
)

// TestClient drives the API as one buyer. Every request carries the buyer
// identity header, so contention tests create one client per buyer.
type TestClient struct {
	BaseURL    string
	BuyerID    string
	HTTPClient *http.Client
}

// NewTestClient creates a client bound to one buyer identity
func NewTestClient(baseURL, buyerID string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		BuyerID: buyerID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest makes an HTTP request and returns the response
func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BuyerID != "" {
		req.Header.Set("X-Buyer-ID", c.BuyerID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// CreateTicket creates a ticket with its stock units
func (c *TestClient) CreateTicket(t *testing.T, title string, quantity int, price int64) int64 {
	req := models.CreateTicketRequest{
		Title:    title,
		Quantity: quantity,
		Price:    price,
	}

	resp := c.makeRequest(t, "POST", "/api/tickets", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var created models.CreateTicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode ticket response: %v", err)
	}

	return created.ID
}

// ListTickets lists all tickets
func (c *TestClient) ListTickets(t *testing.T) []models.Ticket {
	resp := c.makeRequest(t, "GET", "/api/tickets", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var tickets []models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		t.Fatalf("Failed to decode tickets response: %v", err)
	}

	return tickets
}

// Enqueue submits a purchase intent for the ticket
func (c *TestClient) Enqueue(t *testing.T, ticketID int64) {
	req := models.EnqueueRequest{TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/waitlist", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 202, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// Position returns the buyer's queue position, or nil before the intent has
// drained into the queue
func (c *TestClient) Position(t *testing.T, ticketID int64) *models.PositionResponse {
	path := fmt.Sprintf("/api/waitlist/position?ticket_id=%d", ticketID)
	resp := c.makeRequest(t, "GET", path, nil)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooEarly {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var position models.PositionResponse
	if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
		t.Fatalf("Failed to decode position response: %v", err)
	}

	return &position
}

// Heartbeat refreshes the buyer's liveness mark
func (c *TestClient) Heartbeat(t *testing.T, ticketID int64) {
	req := models.HeartbeatRequest{TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/waitlist/heartbeat", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// Withdraw removes the buyer from the waiting queue
func (c *TestClient) Withdraw(t *testing.T, ticketID int64) {
	path := fmt.Sprintf("/api/waitlist?ticket_id=%d", ticketID)
	resp := c.makeRequest(t, "DELETE", path, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// Claim tries to allocate one unit. Returns the claim on success, the HTTP
// status otherwise.
func (c *TestClient) Claim(t *testing.T, ticketID int64) (*models.ClaimResponse, int) {
	req := models.ClaimRequest{TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/purchase/claim", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode
	}

	var claim models.ClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&claim); err != nil {
		t.Fatalf("Failed to decode claim response: %v", err)
	}

	return &claim, resp.StatusCode
}

// Confirm finalizes the purchase for a claimed unit
func (c *TestClient) Confirm(t *testing.T, sessionID string, ticketID int64) *models.ConfirmResponse {
	req := models.ConfirmRequest{SessionID: sessionID, TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/purchase/confirm", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var confirm models.ConfirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirm); err != nil {
		t.Fatalf("Failed to decode confirm response: %v", err)
	}

	return &confirm
}

// Abandon releases a claimed unit before confirmation
func (c *TestClient) Abandon(t *testing.T, sessionID string, ticketID int64) {
	req := models.ConfirmRequest{SessionID: sessionID, TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/purchase/abandon", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// Refund voids a finalized purchase
func (c *TestClient) Refund(t *testing.T, ticketID int64) {
	req := models.RefundRequest{TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/purchase/refund", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// ListPurchases lists the buyer's purchases
func (c *TestClient) ListPurchases(t *testing.T) []models.Purchase {
	resp := c.makeRequest(t, "GET", "/api/purchases", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var purchases []models.Purchase
	if err := json.NewDecoder(resp.Body).Decode(&purchases); err != nil {
		t.Fatalf("Failed to decode purchases response: %v", err)
	}

	return purchases
}

// CheckIn flips the buyer's checkin record; returns the HTTP status so the
// repeat-checkin test can assert the conflict
func (c *TestClient) CheckIn(t *testing.T, ticketID int64) int {
	req := models.CheckinRequest{TicketID: ticketID}

	resp := c.makeRequest(t, "POST", "/api/checkins", req)
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

// HealthCheck checks if the API is healthy
func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Health check failed with status %d", resp.StatusCode)
	}
}
