// Package metrics defines the Prometheus instrumentation for the
// dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. Construct once per process;
// promauto registers against the default registry.
type Metrics struct {
	QueriesTotal        prometheus.Counter
	QueryErrorsTotal    prometheus.Counter
	EventsIngestedTotal prometheus.Counter
	IntakeInvalidTotal  prometheus.Counter
}

// NewMetrics creates the counter set.
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_queries_total",
			Help: "Total number of aggregation queries served",
		}),
		QueryErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_query_errors_total",
			Help: "Total number of aggregation queries that failed",
		}),
		EventsIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_events_ingested_total",
			Help: "Total number of records accepted through intake",
		}),
		IntakeInvalidTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_intake_invalid_total",
			Help: "Total number of intake payloads dropped as malformed",
		}),
	}
}

// IncQueries counts one served query.
func (m *Metrics) IncQueries() {
	if m != nil {
		m.QueriesTotal.Inc()
	}
}

// IncQueryErrors counts one failed query.
func (m *Metrics) IncQueryErrors() {
	if m != nil {
		m.QueryErrorsTotal.Inc()
	}
}

// IncEventsIngested counts accepted intake records.
func (m *Metrics) IncEventsIngested(n int) {
	if m != nil {
		m.EventsIngestedTotal.Add(float64(n))
	}
}

// IncIntakeInvalid counts one dropped intake payload.
func (m *Metrics) IncIntakeInvalid() {
	if m != nil {
		m.IntakeInvalidTotal.Inc()
	}
}
