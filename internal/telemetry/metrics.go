// Package telemetry provides application-level observability for ChorusDesk.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<CHD_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint returns data in the Prometheus text
// exposition format and is intended to be scraped every 15–60 seconds. It is
// NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Audit trail counters (entries written by action/criticality, retention purges)
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/users/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}. The
// path label holds the Gin route template, NOT the raw URL.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit trail metrics — recorded by the save interceptor and the retention job.
//
// AuditEntriesTotal is a CounterVec with labels {action, critical} incremented
// once per audit row written. "action" is one of Created, Modified, Deleted,
// RoleAdded, RoleRemoved; "critical" is "true" or "false".
//
// Example PromQL queries:
//   - Critical change rate:   sum(rate(audit_entries_total{critical="true"}[1h]))
//   - Deletions per day:      increase(audit_entries_total{action="Deleted"}[24h])
//
// AuditEntriesPurgedTotal is a plain Counter incremented by the number of rows
// removed each time the retention job runs. A sudden large increase outside
// the configured retention window is worth alerting on.
var (
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit log entries written, by action and criticality.",
		},
		[]string{"action", "critical"},
	)

	AuditEntriesPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_purged_total",
			Help: "Total number of audit log entries removed by the retention job.",
		},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool. It is sampled every 30
// seconds by StartDBStatsCollector rather than per-request to avoid the
// overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the
// DBOpenConnections gauge. The goroutine exits cleanly when the database
// becomes unreachable (db.Ping fails), which happens automatically when the
// application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
