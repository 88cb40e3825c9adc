package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	pendingRequestsGauge = prom.NewGauge(prom.GaugeOpts{
		Name: "connector_pending_requests",
		Help: "Requests waiting for a wallet decision.",
	})
	requestsCounter = prom.NewCounterVec(prom.CounterOpts{
		Name: "connector_requests_total",
		Help: "Requests handled by the background process, split by type and outcome.",
	}, []string{"type", "outcome"})
	droppedMessagesCounter = prom.NewCounterVec(prom.CounterOpts{
		Name: "connector_dropped_messages_total",
		Help: "Messages dropped by a relay hop, split by reason.",
	}, []string{"reason"})
	decisionDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Name:    "connector_decision_seconds",
		Help:    "Time between enqueueing a request and resolving it.",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"type"})
	connectedTabsGauge = prom.NewGauge(prom.GaugeOpts{
		Name: "connector_connected_tabs",
		Help: "Content scripts currently attached.",
	})
)

const (
	OutcomeConfirmed = "confirmed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

func init() {
	prom.MustRegister(pendingRequestsGauge)
	prom.MustRegister(requestsCounter)
	prom.MustRegister(droppedMessagesCounter)
	prom.MustRegister(decisionDuration)
	prom.MustRegister(connectedTabsGauge)
}

func SetPendingRequests(count int) {
	pendingRequestsGauge.Set(float64(count))
}

// ObserveDecision records how a queued request ended and how long it waited.
func ObserveDecision(requestType, outcome string, waited time.Duration) {
	requestsCounter.WithLabelValues(requestType, outcome).Inc()
	decisionDuration.WithLabelValues(requestType).Observe(waited.Seconds())
}

func IncDroppedMessages(reason string) {
	droppedMessagesCounter.WithLabelValues(reason).Inc()
}

// DroppedMessages returns the drop counter of reason.
func DroppedMessages(reason string) prom.Counter {
	return droppedMessagesCounter.WithLabelValues(reason)
}

func IncConnectedTabs() {
	connectedTabsGauge.Inc()
}

func DecConnectedTabs() {
	connectedTabsGauge.Dec()
}
