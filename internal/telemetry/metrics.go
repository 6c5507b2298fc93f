// Package telemetry provides application-level observability for FamilyVault.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<FV_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped every 15–60 seconds.  It is NOT served by
// the Gin router, so it never competes with API traffic.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Identity resolution outcome counters
//   - Resource archive and file transfer counters
//   - Renewal reminder and activity recorder counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /v1/assets/:id) rather
// than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as resource ids.
//
// # Usage
//
//	telemetry.IdentityResolutionsTotal.WithLabelValues("cached").Inc()
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
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
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

// Identity resolution metrics.
//
// IdentityResolutionsTotal is a CounterVec with label {outcome}:
//
//   - "cached":      the user row already carried a team id
//   - "membership":  an existing membership was found and cached
//   - "provisioned": a new team was created for a first-time user
//   - "recovered":   this request lost the provisioning race and adopted the winner's team
//
// A sustained non-zero "recovered" rate is normal under bursty first logins;
// a high "membership" rate suggests the cache column is being cleared too often.
//
// Example PromQL queries:
//   - First-time signups:  rate(identity_resolutions_total{outcome="provisioned"}[1h])
//   - Cache hit ratio:     sum(rate(identity_resolutions_total{outcome="cached"}[5m])) / sum(rate(identity_resolutions_total[5m]))
var IdentityResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "identity_resolutions_total",
		Help: "Total number of team resolutions performed, by outcome.",
	},
	[]string{"outcome"},
)

// Resource lifecycle metrics.
//
// ResourceArchivesTotal counts archive operations by resource type
// (asset, contact, event, subscription).  Documents and attachments are
// hard-deleted and counted separately in ResourceDeletesTotal.
//
// Example PromQL queries:
//   - Archive rate by type:  sum by (resource) (rate(resource_archives_total[1h]))
var (
	ResourceArchivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_archives_total",
			Help: "Total number of soft-delete archive operations, by resource type.",
		},
		[]string{"resource"},
	)

	ResourceDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_deletes_total",
			Help: "Total number of hard-delete operations, by resource type (document, attachment).",
		},
		[]string{"resource"},
	)
)

// File transfer metrics — incremented by the document and attachment handlers.
//
// Example PromQL queries:
//   - Upload volume by kind:  sum by (kind) (rate(file_uploads_total[1h]))
var (
	FileUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_uploads_total",
			Help: "Total number of files uploaded to blob storage, by kind (document, attachment).",
		},
		[]string{"kind"},
	)

	FileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_downloads_total",
			Help: "Total number of file downloads served, by kind (document, attachment).",
		},
		[]string{"kind"},
	)
)

// RenewalRemindersSentTotal is a plain Counter incremented once per reminder
// recorded by the subscription renewal background job.  A stalled counter
// combined with subscriptions approaching renewal is a useful alert signal.
//
// Example PromQL queries:
//   - Reminder rate:  rate(renewal_reminders_sent_total[24h])
var RenewalRemindersSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "renewal_reminders_sent_total",
		Help: "Total number of subscription renewal reminders recorded.",
	},
)

// Activity recorder metrics.
//
// ActivityShipErrorsTotal counts failed deliveries by sink ("db", "webhook",
// "file").  Activity recording is best-effort and never fails the primary
// operation, so this counter is the only place delivery failures surface.
//
// Example PromQL queries:
//   - Alert expression:  increase(activity_ship_errors_total[30m]) > 3
var (
	ActivityEntriesRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_entries_recorded_total",
			Help: "Total number of activity log entries accepted for recording.",
		},
	)

	ActivityShipErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_ship_errors_total",
			Help: "Total number of failed activity entry deliveries, by sink.",
		},
		[]string{"sink"},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <FV_DATABASE_MAX_CONNECTIONS> * 100
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
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
