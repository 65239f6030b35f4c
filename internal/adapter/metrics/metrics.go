package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the orchestration service.
type Metrics struct {
	JobsTotal          *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	ContextCacheHits   prometheus.Counter
	ContextCacheMisses prometheus.Counter
	SignalFailures     prometheus.Counter
	ProvisionTotal     *prometheus.CounterVec
}

// New initializes and registers the Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Total number of dispatched jobs by kind and status.",
		}, []string{"kind", "status"}), // status: succeeded, failed, rejected
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of job process execution.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"kind"}),
		ContextCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "cache",
			Name:      "context_hits_total",
			Help:      "Total number of tenant context cache hits.",
		}),
		ContextCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "cache",
			Name:      "context_misses_total",
			Help:      "Total number of tenant context cache misses or forced refreshes.",
		}),
		SignalFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "signal",
			Name:      "failures_total",
			Help:      "Total number of failed stale-index notifications.",
		}),
		ProvisionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag_orchestrator",
			Subsystem: "provision",
			Name:      "total",
			Help:      "Total number of provisioning attempts by status.",
		}, []string{"status"}), // status: created, backfilled, error
	}
}
