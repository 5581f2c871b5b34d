package external

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PaymentClient talks to the payment gateway. When no BaseURL is configured
// the client runs in simulated mode and authorizes everything locally, which
// is the expected setup for this engine: real payment processing lives in a
// separate system.
type PaymentClient struct {
	baseURL    string
	teamSlug   string
	password   string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL  string
	TeamSlug string
	Password string
	Timeout  time.Duration
}

type PaymentAuthorization struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:  cfg.BaseURL,
		teamSlug: cfg.TeamSlug,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Simulated reports whether the client authorizes locally
func (pc *PaymentClient) Simulated() bool {
	return pc.baseURL == ""
}

// Authorize charges the buyer for one unit. In simulated mode it always
// succeeds with a synthetic payment ID.
func (pc *PaymentClient) Authorize(amount int64, orderID string) (*PaymentAuthorization, error) {
	if pc.Simulated() {
		return &PaymentAuthorization{
			PaymentID: "sim-" + uuid.New().String(),
			OrderID:   orderID,
			Status:    "CONFIRMED",
			Amount:    amount,
		}, nil
	}

	token := pc.generateToken(map[string]string{
		"Amount":  fmt.Sprintf("%d", amount),
		"OrderId": orderID,
	})

	reqBody := map[string]interface{}{
		"teamSlug": pc.teamSlug,
		"token":    token,
		"amount":   amount,
		"orderId":  orderID,
		"currency": "USD",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/init", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var auth PaymentAuthorization
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	return &auth, nil
}

// generateToken builds the gateway request signature: all parameters plus the
// shared secret, sorted by key, concatenated and hashed
func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["TeamSlug"] = pc.teamSlug
	params["Password"] = pc.password

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}
