package statussync

import "github.com/palmerclinic/clinic-platform/internal/observability/metrics"

// NewMetricsObserver bridges protocol events into prometheus counters.
func NewMetricsObserver(m *metrics.StatusSyncMetrics) Observer {
	return ObserverFunc(func(ev Event) {
		m.ObserveProtocolEvent(ev.Name)
	})
}
