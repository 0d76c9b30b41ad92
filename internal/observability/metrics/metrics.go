package metrics

import "github.com/prometheus/client_golang/prometheus"

// SafetyMetrics exposes counters/histograms for the evaluation pipeline.
type SafetyMetrics struct {
	evaluationsTotal *prometheus.CounterVec
	criticFailures   *prometheus.CounterVec
	reviewsTotal     *prometheus.CounterVec
	evalLatency      prometheus.Histogram
}

func NewSafetyMetrics(reg prometheus.Registerer) *SafetyMetrics {
	m := &SafetyMetrics{
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "safety",
			Name:      "evaluations_total",
			Help:      "Total assistant replies evaluated, by fused risk level",
		}, []string{"risk_level", "flagged"}),
		criticFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "safety",
			Name:      "critic_failures_total",
			Help:      "Total degraded critic evaluations",
		}, []string{"reason"}),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "review",
			Name:      "reviews_total",
			Help:      "Total human review submissions, by verdict",
		}, []string{"verdict"}),
		evalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "haven",
			Subsystem: "safety",
			Name:      "evaluation_latency_seconds",
			Help:      "Latency of the full detect+critic+fuse evaluation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.evaluationsTotal, m.criticFailures, m.reviewsTotal, m.evalLatency)
	return m
}

func (m *SafetyMetrics) ObserveEvaluation(riskLevel string, flagged bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if flagged {
		label = "true"
	}
	m.evaluationsTotal.WithLabelValues(riskLevel, label).Inc()
	m.evalLatency.Observe(seconds)
}

func (m *SafetyMetrics) ObserveCriticFailure(reason string) {
	if m == nil {
		return
	}
	m.criticFailures.WithLabelValues(reason).Inc()
}

func (m *SafetyMetrics) ObserveReview(verdict string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(verdict).Inc()
}
