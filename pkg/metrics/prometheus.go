package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	queryDuration   *prometheus.HistogramVec
	queryErrors     *prometheus.CounterVec
	findingsTotal   *prometheus.CounterVec
	schemaRefreshes prometheus.Counter
	schemaEntities  prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		queryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradewatch_query_duration_seconds",
				Help:    "Duration of graph database queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		queryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_query_errors_total",
				Help: "Total number of failed graph database queries",
			},
			[]string{"operation"},
		),
		findingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_findings_total",
				Help: "Total number of accepted detection findings",
			},
			[]string{"family", "severity"},
		),
		schemaRefreshes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_schema_refreshes_total",
				Help: "Total number of schema discovery runs",
			},
		),
		schemaEntities: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradewatch_schema_entity_types",
				Help: "Entity types in the current schema snapshot",
			},
		),
	}
}

// RecordQuery records the duration of one graph query.
func (r *Recorder) RecordQuery(operation string, seconds float64) {
	r.queryDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordQueryError records a failed graph query.
func (r *Recorder) RecordQueryError(kind string) {
	r.queryErrors.WithLabelValues(kind).Inc()
}

// RecordFinding records one accepted finding.
func (r *Recorder) RecordFinding(family, severity string) {
	r.findingsTotal.WithLabelValues(family, severity).Inc()
}

// RecordSchemaRefresh records one discovery run and the snapshot size.
func (r *Recorder) RecordSchemaRefresh(entityTypes int) {
	r.schemaRefreshes.Inc()
	r.schemaEntities.Set(float64(entityTypes))
}
