package metrics

import "github.com/prometheus/client_golang/prometheus"

// StatusSyncMetrics exposes counters/histograms for the appointment status
// synchronization protocol: client-side protocol transitions and the server
// status endpoint.
type StatusSyncMetrics struct {
	protocolEvents   *prometheus.CounterVec
	endpointRequests *prometheus.CounterVec
	endpointLatency  *prometheus.HistogramVec
}

func NewStatusSyncMetrics(reg prometheus.Registerer) *StatusSyncMetrics {
	m := &StatusSyncMetrics{
		protocolEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "status_sync",
			Name:      "protocol_events_total",
			Help:      "Status synchronizer protocol transitions by event name",
		}, []string{"event"}),
		endpointRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "status_sync",
			Name:      "endpoint_requests_total",
			Help:      "Status endpoint requests by result",
		}, []string{"result"}),
		endpointLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "status_sync",
			Name:      "endpoint_latency_seconds",
			Help:      "Latency of status endpoint handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.protocolEvents, m.endpointRequests, m.endpointLatency)
	return m
}

func (m *StatusSyncMetrics) ObserveProtocolEvent(event string) {
	if m == nil {
		return
	}
	m.protocolEvents.WithLabelValues(event).Inc()
}

func (m *StatusSyncMetrics) ObserveEndpoint(result string, seconds float64) {
	if m == nil {
		return
	}
	m.endpointRequests.WithLabelValues(result).Inc()
	m.endpointLatency.WithLabelValues(result).Observe(seconds)
}
