package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LikesTotal counts like calls by target kind and result (created, existing, error).
	LikesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmaforum_likes_total",
		Help: "Like calls by target kind and result",
	}, []string{"kind", "result"})

	// LedgerEntriesTotal counts karma transactions appended, by reason.
	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmaforum_ledger_entries_total",
		Help: "Karma transactions appended by reason",
	}, []string{"reason"})

	LikeRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "karmaforum_like_retries_total",
		Help: "Like transactions retried after a retryable datastore failure",
	})

	LeaderboardDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "karmaforum_leaderboard_duration_seconds",
		Help:    "Leaderboard computation latency",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"source"})
)

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
