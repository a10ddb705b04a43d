package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for geofence evaluation and zone
// management.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	ZoneWrites  *prometheus.CounterVec
}

// New creates and registers the geofence metrics.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeband_geofence_evaluations_total",
			Help: "Position samples classified against a zone, by result",
		}, []string{"result"}),
		ZoneWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeband_zone_writes_total",
			Help: "Safe zone create and update operations, by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) RecordEvaluation(inside bool) {
	if m == nil {
		return
	}
	result := "outside"
	if inside {
		result = "inside"
	}
	m.Evaluations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordZoneWrite(kind string) {
	if m != nil {
		m.ZoneWrites.WithLabelValues(kind).Inc()
	}
}
