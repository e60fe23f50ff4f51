package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "earnapp"

var (
	TxnConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "txn_conflicts_total",
			Help:      "Transaction attempts that lost a race and were retried",
		},
		[]string{"backend"},
	)
	TxnExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "txn_exhausted_total",
			Help:      "Transactions that ran out of retries",
		},
		[]string{"backend"},
	)
	Credits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score",
			Name:      "credits_total",
			Help:      "Committed score credits by component",
		},
		[]string{"component"},
	)
	Claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "claims_total",
			Help:      "Claim attempts by outcome",
		},
		[]string{"result"},
	)
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "verifications_total",
			Help:      "Finished membership verifications by outcome",
		},
		[]string{"result"},
	)
	Referrals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "processed_total",
			Help:      "Referral halves by side and outcome",
		},
		[]string{"side", "result"},
	)
	StreakTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streaks",
			Name:      "transitions_total",
			Help:      "Streak transitions by kind",
		},
		[]string{"transition"},
	)
	Resets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resets",
			Name:      "applied_total",
			Help:      "Daily and weekly resets applied",
		},
		[]string{"kind"},
	)
	UpdateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "update_duration_seconds",
			Help:      "Time spent handling a Telegram update",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)
	Panics = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "panics_total",
			Help:      "Handler panics recovered",
		},
	)
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "rate_limited_total",
			Help:      "Messages dropped by the rate limiter",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
