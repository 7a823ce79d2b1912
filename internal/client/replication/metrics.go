package replication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iudanet/docsync/internal/models"
)

var (
	roundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsync_replication_rounds_total",
		Help: "Total replication rounds by mode and result",
	}, []string{"mode", "result"})

	revisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsync_replication_revisions_total",
		Help: "Total revisions replicated by direction",
	}, []string{"direction"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsync_replication_retries_total",
		Help: "Total automatic reconnect attempts after a failure",
	})

	roundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docsync_replication_round_duration_seconds",
		Help:    "Replication round duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	phaseGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docsync_replication_phase",
		Help: "Current replication phase (1 for the active phase)",
	}, []string{"phase"})
)

var allPhases = []models.Phase{
	models.PhaseDisconnected,
	models.PhaseConnecting,
	models.PhaseActive,
	models.PhaseUpToDate,
	models.PhaseError,
	models.PhaseOffline,
}

func observePhase(current models.Phase) {
	for _, p := range allPhases {
		v := 0.0
		if p == current {
			v = 1
		}
		phaseGauge.WithLabelValues(string(p)).Set(v)
	}
}
