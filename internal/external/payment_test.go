package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedAuthorize(t *testing.T) {
	pc := NewPaymentClient(PaymentConfig{})
	assert.True(t, pc.Simulated())

	auth, err := pc.Authorize(5000, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", auth.Status)
	assert.Equal(t, int64(5000), auth.Amount)
	assert.Equal(t, "order-1", auth.OrderID)
	assert.NotEmpty(t, auth.PaymentID)
}

func TestAuthorizeAgainstGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/init", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "team", req["teamSlug"])
		assert.NotEmpty(t, req["token"])

		json.NewEncoder(w).Encode(PaymentAuthorization{
			PaymentID: "pay-1",
			OrderID:   req["orderId"].(string),
			Status:    "CONFIRMED",
			Amount:    int64(req["amount"].(float64)),
		})
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{
		BaseURL:  srv.URL,
		TeamSlug: "team",
		Password: "secret",
		Timeout:  5 * time.Second,
	})
	assert.False(t, pc.Simulated())

	auth, err := pc.Authorize(5000, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", auth.PaymentID)
	assert.Equal(t, int64(5000), auth.Amount)
}

func TestAuthorizeGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})

	_, err := pc.Authorize(5000, "order-1")
	assert.Error(t, err)
}
