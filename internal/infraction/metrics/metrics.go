package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal    *prometheus.CounterVec
	DuplicateHitsTotal  prometheus.Counter
	SubmissionDuration  prometheus.Histogram
	HistoryQueriesTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mimir_infraction_submissions_total",
			Help: "Total number of infraction submissions by outcome",
		}, []string{"outcome"}),
		DuplicateHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mimir_infraction_duplicate_hits_total",
			Help: "Total number of submissions resolved to an existing record",
		}),
		SubmissionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mimir_infraction_submission_duration_seconds",
			Help:    "Duration of infraction submissions including lock acquisition",
			Buckets: prometheus.DefBuckets,
		}),
		HistoryQueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mimir_infraction_history_queries_total",
			Help: "Total number of history queries served",
		}),
	}
}

func (m *Metrics) IncrementSubmissions(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDuplicateHits() {
	m.DuplicateHitsTotal.Inc()
}

func (m *Metrics) ObserveSubmission(seconds float64) {
	m.SubmissionDuration.Observe(seconds)
}

func (m *Metrics) IncrementHistoryQueries() {
	m.HistoryQueriesTotal.Inc()
}
