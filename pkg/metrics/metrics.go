package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WALRecords counts records appended to the write-ahead log by operation.
	WALRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonosql_wal_records_total",
			Help: "Total number of records appended to the write-ahead log",
		},
		[]string{"operation"},
	)
	// WALBytes counts bytes appended to the write-ahead log.
	WALBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gonosql_wal_bytes_total",
			Help: "Total number of bytes appended to the write-ahead log",
		},
	)
	WALRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gonosql_wal_rotations_total",
			Help: "Total number of write-ahead log file rotations",
		},
	)
	WALFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gonosql_wal_failures_total",
			Help: "Total number of failed write-ahead log appends",
		},
	)
	// WALArchived counts sealed segments compressed to lz4.
	WALArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonosql_wal_archived_total",
			Help: "Total number of sealed write-ahead log segments archived",
		},
		[]string{"status"},
	)
	// ReplayedRecords counts records seen during recovery by outcome.
	ReplayedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonosql_wal_replayed_records_total",
			Help: "Total number of write-ahead log records replayed at startup",
		},
		[]string{"status"},
	)
	// Operations counts engine operations by kind and outcome.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonosql_operations_total",
			Help: "Total number of engine operations",
		},
		[]string{"operation", "status"},
	)
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gonosql_active_connections",
			Help: "Number of open line protocol connections",
		},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gonosql_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveOperation records the outcome of an engine operation.
func ObserveOperation(operation string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	Operations.WithLabelValues(operation, status).Inc()
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
