package db

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector records statement counts and latencies. Statements are
// labelled by their leading SQL verb to keep label cardinality bounded.
type PrometheusCollector struct {
	queries *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPrometheusCollector builds the collector and registers it with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total SQL statements executed",
			},
			[]string{"verb", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "SQL statement latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"verb"},
		),
	}
	for _, col := range []prometheus.Collector{c.queries, c.latency} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) RecordQuery(query string, d time.Duration, ok bool) {
	verb := statementVerb(query)
	status := "ok"
	if !ok {
		status = "error"
	}
	c.queries.WithLabelValues(verb, status).Inc()
	c.latency.WithLabelValues(verb).Observe(d.Seconds())
}

func statementVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	switch v := strings.ToUpper(fields[0]); v {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "BEGIN", "COMMIT", "ROLLBACK":
		return strings.ToLower(v)
	}
	return "other"
}

var _ MetricsCollector = (*PrometheusCollector)(nil)
