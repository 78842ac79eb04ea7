package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_http_requests_total",
			Help: "Total number of HTTP requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydeck_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	statementExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_statement_executions_total",
			Help: "Total number of SQL statement executions by engine and outcome.",
		},
		[]string{"engine", "status"},
	)
	statementDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydeck_statement_duration_seconds",
			Help:    "SQL statement execution latency by engine.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)
	generationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_generation_calls_total",
			Help: "Total number of SQL generation turns by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		statementExecutionsTotal,
		statementDurationSeconds,
		generationCallsTotal,
	)
}

// RecordExecution observes one statement execution outcome.
func RecordExecution(engine, status string, elapsed time.Duration) {
	statementExecutionsTotal.WithLabelValues(engine, status).Inc()
	statementDurationSeconds.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// RecordGeneration counts one generation turn by provider and outcome.
func RecordGeneration(provider, outcome string) {
	generationCallsTotal.WithLabelValues(provider, outcome).Inc()
}
