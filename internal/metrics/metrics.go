// Package metrics holds the Prometheus collectors for bracket operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bracket"

// Result kinds
const (
	ResultReported  = "reported"
	ResultCorrected = "corrected"
	ResultBye       = "bye"
)

type Metrics struct {
	bracketsGenerated    prometheus.Counter
	resultsReported      *prometheus.CounterVec
	tournamentsCompleted prometheus.Counter
	operationDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		bracketsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brackets_generated_total",
			Help:      "Brackets built for tournaments.",
		}),
		resultsReported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Match results recorded, by kind.",
		}, []string{"kind"}),
		tournamentsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_completed_total",
			Help:      "Tournaments whose final was resolved.",
		}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of bracket operations, successful or not.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) BracketGenerated() {
	if m == nil {
		return
	}
	m.bracketsGenerated.Inc()
}

func (m *Metrics) ResultRecorded(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resultsReported.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) TournamentCompleted() {
	if m == nil {
		return
	}
	m.tournamentsCompleted.Inc()
}

// ObserveSince records the time elapsed since start, usually deferred.
func (m *Metrics) ObserveSince(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
