package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the alert engine.
type Metrics struct {
	ExitAlerts     prometheus.Counter
	AlertsCleared  prometheus.Counter
	TimersStarted  prometheus.Counter
	TimersCanceled prometheus.Counter
	EventsDropped  prometheus.Counter
}

// New creates and registers the alert metrics.
func New() *Metrics {
	return &Metrics{
		ExitAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_exit_alerts_total",
			Help: "Exit alerts raised after the debounce delay elapsed",
		}),
		AlertsCleared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_alerts_cleared_total",
			Help: "Alerts cleared by re-entry or caregiver dismissal",
		}),
		TimersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_debounce_timers_started_total",
			Help: "Debounce timers started on zone exit",
		}),
		TimersCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_debounce_timers_canceled_total",
			Help: "Debounce timers canceled by re-entry before the delay elapsed",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_alert_events_dropped_total",
			Help: "Alert events dropped because the dispatch buffer was full",
		}),
	}
}

func (m *Metrics) RecordExitAlert() {
	if m != nil {
		m.ExitAlerts.Inc()
	}
}

func (m *Metrics) RecordCleared() {
	if m != nil {
		m.AlertsCleared.Inc()
	}
}

func (m *Metrics) RecordTimerStarted() {
	if m != nil {
		m.TimersStarted.Inc()
	}
}

func (m *Metrics) RecordTimerCanceled() {
	if m != nil {
		m.TimersCanceled.Inc()
	}
}

func (m *Metrics) RecordEventDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}
