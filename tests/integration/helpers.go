package integration

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// apiBaseURL resolves the deployment under test
func apiBaseURL() string {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8081"
}

// requireAPI skips the test when no deployment is reachable. The suite runs
// against a live stack (Postgres, Valkey, the API and the sweeper), not in
// isolation.
func requireAPI(t *testing.T) string {
	base := apiBaseURL()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/health")
	if err != nil {
		t.Skipf("API not reachable at %s: %v", base, err)
	}
	resp.Body.Close()
	return base
}

// uniqueBuyerID returns a buyer identity that will not collide across runs
func uniqueBuyerID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// waitForPosition polls until the buyer's intent has drained from the
// ingress buffer into the waiting queue
func waitForPosition(t *testing.T, client *TestClient, ticketID int64, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pos := client.Position(t, ticketID); pos != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Buyer %s never appeared in the waiting queue", client.BuyerID)
}

// waitForAdmission polls until the admission threshold reaches the buyer
func waitForAdmission(t *testing.T, client *TestClient, ticketID int64, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pos := client.Position(t, ticketID); pos != nil && pos.Admitted {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("Buyer %s was never admitted", client.BuyerID)
}

// LogTestStep logs a test step for better debugging
func LogTestStep(t *testing.T, step string, args ...interface{}) {
	t.Logf("🔹 "+step, args...)
}

// LogTestResult logs a test result
func LogTestResult(t *testing.T, result string, args ...interface{}) {
	t.Logf("✅ "+result, args...)
}
