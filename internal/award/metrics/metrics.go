package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for award evaluation.
type Metrics struct {
	Granted            *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
}

// New creates and registers the award metrics.
func New() *Metrics {
	return &Metrics{
		Granted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgehub_awards_granted_total",
			Help: "Awards granted by source (evaluation or manual)",
		}, []string{"source"}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgehub_award_evaluation_duration_seconds",
			Help:    "Duration of one user's award evaluation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncGranted(source string) {
	if m != nil {
		m.Granted.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m != nil {
		m.EvaluationDuration.Observe(d.Seconds())
	}
}
