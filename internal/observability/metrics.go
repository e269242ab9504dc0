package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streettrees"

// Metrics holds the Prometheus collectors for ingestion, queries and the HTTP API.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	RecordsRejected *prometheus.CounterVec // labels: reason={invalid_field,malformed,integrity}
	CatalogSize     prometheus.Gauge
	LoadDuration    prometheus.Gauge

	SpeciesQueries *prometheus.CounterVec // labels: outcome={match,empty}
	QueryCache     *prometheus.CounterVec // labels: result={hit,miss}

	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Tree records validated and added to the catalog.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Input rows that did not become tree records, by reason.",
		}, []string{"reason"}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_size",
			Help:      "Number of tree records in the loaded catalog.",
		}),
		LoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of the last catalog load.",
		}),
		SpeciesQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "species_queries_total",
			Help:      "Species statistics lookups by outcome.",
		}, []string{"outcome"}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Species statistics cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsLoaded,
		m.RecordsRejected,
		m.CatalogSize,
		m.LoadDuration,
		m.SpeciesQueries,
		m.QueryCache,
		m.HTTPRequests,
		m.HTTPDuration,
	}
}

// NewMetrics creates all collectors and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates collectors registered on a private registry so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
