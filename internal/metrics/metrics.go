package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the admission/allocation flow. Registered on the default
// registry and exposed on /metrics.
var (
	ClaimsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_claims_granted_total",
		Help: "Stock units successfully claimed",
	})

	ClaimsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_claims_exhausted_total",
		Help: "Claim attempts that found no free unit",
	})

	PurchasesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_purchases_confirmed_total",
		Help: "Purchases finalized",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_sessions_expired_total",
		Help: "Reserved units reclaimed after session expiry",
	})

	WaitingEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_waiting_evicted_total",
		Help: "Waiting entries evicted by the heartbeat sweep",
	})

	IngressRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_ingress_rejected_total",
		Help: "Enqueue intents rejected because the ingress buffer was full",
	})

	WaitingDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "turnstile_waiting_depth",
		Help: "Current waiting queue depth per ticket",
	}, []string{"ticket_id"})

	AdmittedThrough = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "turnstile_admitted_through",
		Help: "Current admission threshold per ticket",
	}, []string{"ticket_id"})

	IngressSaturation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "turnstile_ingress_saturation",
		Help: "Ingress buffer fill fraction (size / capacity)",
	})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turnstile_events_consumed_total",
		Help: "Domain events recorded by the audit consumer",
	}, []string{"subject"})
)
