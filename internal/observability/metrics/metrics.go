package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters/histograms for booking and chat flows.
type PortalMetrics struct {
	gatewayTotal   *prometheus.CounterVec
	listFailures   prometheus.Counter
	chatTurns      *prometheus.CounterVec
	toolCalls      *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		gatewayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "gateway_requests_total",
			Help:      "Total scheduling service requests by operation and status",
		}, []string{"op", "status"}),
		listFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "list_failures_total",
			Help:      "List calls degraded to an empty result",
		}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by outcome (reply, fallback)",
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "bookAppointment tool executions by outcome",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of scheduling service calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.gatewayTotal, m.listFailures, m.chatTurns, m.toolCalls, m.gatewayLatency)
	return m
}

func (m *PortalMetrics) ObserveGatewayCall(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayTotal.WithLabelValues(op, status).Inc()
	m.gatewayLatency.WithLabelValues(op).Observe(seconds)
}

func (m *PortalMetrics) ObserveListFailure() {
	if m == nil {
		return
	}
	m.listFailures.Inc()
}

func (m *PortalMetrics) ObserveChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveToolCall(outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(outcome).Inc()
}
