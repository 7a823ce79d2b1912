package conflict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resolutionsTotal counts resolved documents by merge tier and trigger
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsync_conflict_resolutions_total",
		Help: "Total resolved conflicts by merge tier and trigger",
	}, []string{"tier", "trigger"})

	// deferredTotal counts composite conflicts left for manual resolution
	deferredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsync_conflict_deferred_total",
		Help: "Total conflicts left in place because only a composite merge was possible",
	})

	// resolutionRetries counts optimistic concurrency retries
	resolutionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsync_conflict_resolution_retries_total",
		Help: "Total resolution attempts retried after a concurrent write",
	})

	// resolutionErrors counts failed resolutions by reason
	resolutionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsync_conflict_resolution_errors_total",
		Help: "Total failed resolutions by reason",
	}, []string{"reason"})
)
