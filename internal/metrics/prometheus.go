package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink registers a rail's result/rejected counters and latency
// histograms as real Prometheus collectors (a CounterVec/HistogramVec per
// concern). The sink only mirrors observations the rail already recorded
// internally — it is never the source of truth for acquire/release
// accounting.
type PrometheusSink struct {
	railName    string
	resultTotal *prometheus.CounterVec
	rejectTotal *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPrometheusSink creates and registers the rail's metrics with registry.
// Outcome and reason labels are supplied per observation, by name.
func NewPrometheusSink(registry *prometheus.Registry, railName string) *PrometheusSink {
	s := &PrometheusSink{
		railName: railName,
		resultTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railguard_rail_results_total",
				Help: "Total guard rail releases by outcome.",
			},
			[]string{"rail", "outcome"},
		),
		rejectTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railguard_rail_rejections_total",
				Help: "Total guard rail acquire rejections by reason.",
			},
			[]string{"rail", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railguard_rail_duration_seconds",
				Help:    "Guard rail operation duration by outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"rail", "outcome"},
		),
	}
	registry.MustRegister(s.resultTotal, s.rejectTotal, s.duration)
	return s
}

// ObserveResult records one release for outcomeName, mirroring into the
// Prometheus counter and histogram. Called from the rail's release path in
// addition to (not instead of) the internal ResultCounts/LatencyRecorder.
func (s *PrometheusSink) ObserveResult(outcomeName string, d time.Duration) {
	s.resultTotal.WithLabelValues(s.railName, outcomeName).Inc()
	s.duration.WithLabelValues(s.railName, outcomeName).Observe(d.Seconds())
}

// ObserveRejection records one rejected acquire for reasonName.
func (s *PrometheusSink) ObserveRejection(reasonName string) {
	s.rejectTotal.WithLabelValues(s.railName, reasonName).Inc()
}
