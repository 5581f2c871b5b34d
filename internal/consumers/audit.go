package consumers

import (
	"encoding/json"

	"github.com/nats-io/stan.go"

	"turnstile/internal/logger"
	"turnstile/internal/messaging"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
)

const auditQueueGroup = "turnstile-audit"

// EventAuditConsumer tails the sale's domain events into an operational
// audit trail: one structured log line and one counter bump per event.
// Purchase events go through a queue group so a fleet of sweepers records
// each exactly once; release and eviction events are observed per instance.
type EventAuditConsumer struct {
	nats *messaging.NATSClient
	subs []stan.Subscription
}

func NewEventAuditConsumer(nats *messaging.NATSClient) *EventAuditConsumer {
	return &EventAuditConsumer{nats: nats}
}

func (c *EventAuditConsumer) Start() error {
	for _, subject := range []string{models.EventPurchaseCompleted, models.EventPurchaseRefunded} {
		subject := subject
		sub, err := c.nats.SubscribeQueue(subject, auditQueueGroup, func(m *stan.Msg) {
			c.record(subject, m.Data)
		})
		if err != nil {
			c.Stop()
			return err
		}
		c.subs = append(c.subs, sub)
	}

	for _, subject := range []string{models.EventUnitReleased, models.EventWaitlistEvicted} {
		subject := subject
		sub, err := c.nats.Subscribe(subject, func(m *stan.Msg) {
			c.record(subject, m.Data)
		})
		if err != nil {
			c.Stop()
			return err
		}
		c.subs = append(c.subs, sub)
	}

	return nil
}

// Stop closes the subscriptions without unsubscribing, so durable positions
// survive a sweeper restart
func (c *EventAuditConsumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Close(); err != nil {
			logger.Get().Error("Failed to close event subscription", "error", err)
		}
	}
	c.subs = nil
}

// record logs whatever identifying fields the payload carries and counts the
// event. Undecodable payloads are still counted; the subject alone is useful.
func (c *EventAuditConsumer) record(subject string, data []byte) {
	fields := []any{"subject", subject}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, key := range []string{"ticket_id", "buyer_id", "unit_id", "purchase_id", "reason"} {
			if value, ok := payload[key]; ok {
				fields = append(fields, key, value)
			}
		}
	}

	logger.WithFields(fields...).Info("Domain event")
	metrics.EventsConsumed.WithLabelValues(subject).Inc()
}
