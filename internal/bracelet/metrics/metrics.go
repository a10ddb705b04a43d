package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the bracelet lifecycle.
type Metrics struct {
	Provisioned          prometheus.Counter
	Activations          *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	ActivationsThrottled prometheus.Counter
}

// New creates and registers the bracelet metrics.
func New() *Metrics {
	return &Metrics{
		Provisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_bracelets_provisioned_total",
			Help: "Total number of bracelet identity records created",
		}),
		Activations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeband_activations_total",
			Help: "Activation attempts by result code",
		}, []string{"result"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeband_status_transitions_total",
			Help: "Successful status transitions by target status",
		}, []string{"status"}),
		ActivationsThrottled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeband_activations_throttled_total",
			Help: "Activation attempts rejected by the per-bracelet throttle",
		}),
	}
}

func (m *Metrics) RecordProvisioned(n int) {
	if m == nil {
		return
	}
	m.Provisioned.Add(float64(n))
}

func (m *Metrics) RecordActivation(result string) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordThrottled() {
	if m == nil {
		return
	}
	m.ActivationsThrottled.Inc()
}
