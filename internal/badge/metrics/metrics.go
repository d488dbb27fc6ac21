package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for badge issuance.
type Metrics struct {
	BadgesIssued     *prometheus.CounterVec
	CodeCollisions   prometheus.Counter
	IssueDuration    prometheus.Histogram
	BackfillFailures prometheus.Counter
}

// New creates and registers the badge metrics.
func New() *Metrics {
	return &Metrics{
		BadgesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgehub_badges_issued_total",
			Help: "Total badges issued by scope",
		}, []string{"scope"}),
		CodeCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "badgehub_badge_code_collisions_total",
			Help: "Generated badge codes that were already taken",
		}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgehub_badge_issue_duration_seconds",
			Help:    "Duration of badge issuance including QR rendering",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BackfillFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "badgehub_badge_backfill_failures_total",
			Help: "Person badges the backfill failed to issue",
		}),
	}
}

func (m *Metrics) IncIssued(scope string) {
	if m != nil {
		m.BadgesIssued.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) IncCodeCollision() {
	if m != nil {
		m.CodeCollisions.Inc()
	}
}

func (m *Metrics) ObserveIssueDuration(d time.Duration) {
	if m != nil {
		m.IssueDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) AddBackfillFailures(n int) {
	if m != nil {
		m.BackfillFailures.Add(float64(n))
	}
}
