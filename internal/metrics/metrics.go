package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docchain"

var (
	VersionsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "versions_appended_total", Help: "Number of committed version appends, including version 1 of new documents."},
	)
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_requests_total", Help: "Latest-snapshot cache lookups by result (hit, miss)."},
		[]string{"result"},
	)
	CacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_errors_total", Help: "Swallowed cache failures by operation."},
		[]string{"op"},
	)
	DiffJobsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "diff_jobs_dispatched_total", Help: "Diff job enqueue attempts by result (enqueued, duplicate, failed)."},
		[]string{"result"},
	)
	DiffJobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "diff_jobs_processed_total", Help: "Diff jobs handled by the worker by result (published, skipped, failed)."},
		[]string{"result"},
	)
)

// RegisterCollectors registers the domain collectors on reg. Call once per registry.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(VersionsAppended)
	reg.MustRegister(CacheRequests)
	reg.MustRegister(CacheErrors)
	reg.MustRegister(DiffJobsDispatched)
	reg.MustRegister(DiffJobsProcessed)
}
