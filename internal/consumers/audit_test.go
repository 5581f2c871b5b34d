package consumers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/metrics"
	"turnstile/internal/models"
)

func TestRecordCountsDecodableEvents(t *testing.T) {
	consumer := NewEventAuditConsumer(nil)

	before := consumedFor(t, models.EventPurchaseCompleted)

	payload, err := json.Marshal(models.PurchaseCompletedEvent{
		TicketID:   7,
		BuyerID:    "alice",
		UnitID:     "A-3",
		PurchaseID: 42,
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)

	consumer.record(models.EventPurchaseCompleted, payload)

	assert.Equal(t, before+1, consumedFor(t, models.EventPurchaseCompleted))
}

func TestRecordCountsUndecodablePayloads(t *testing.T) {
	consumer := NewEventAuditConsumer(nil)

	before := consumedFor(t, models.EventUnitReleased)

	consumer.record(models.EventUnitReleased, []byte("not json"))

	assert.Equal(t, before+1, consumedFor(t, models.EventUnitReleased))
}

func consumedFor(t *testing.T, subject string) float64 {
	t.Helper()
	return testutil.ToFloat64(metrics.EventsConsumed.WithLabelValues(subject))
}
