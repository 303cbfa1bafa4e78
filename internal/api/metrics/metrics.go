// Package metrics defines the custom Prometheus metrics of the hotel
// listing API. Every collector lives in Registry, which the router exposes
// on /metrics together with the echo request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "hotel_listing"

// Registry holds every metric this process exports.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginAttemptsTotal = factory.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenRejectionsTotal counts bearer tokens that failed verification.
var TokenRejectionsTotal = factory.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of bearer tokens rejected by the auth middleware.",
	},
)

// ── Admission ────────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected with 429.
// Label:
//   - rule: the endpoint pattern of the rule that rejected the request
var RateLimitedTotal = factory.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"rule"},
)

// RateLimitStoreErrorsTotal counts counter-store failures. Requests are
// admitted when the store fails.
var RateLimitStoreErrorsTotal = factory.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_store_errors_total",
		Help:      "Total number of rate limit store failures (requests admitted).",
	},
)

// CacheNotModifiedTotal counts conditional reads answered with 304.
var CacheNotModifiedTotal = factory.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_not_modified_total",
		Help:      "Total number of GET requests answered with 304 Not Modified.",
	},
)

// ── Storage ──────────────────────────────────────────────────────────────────

// UnitOfWorkSavesTotal counts Save calls made by handlers.
// Labels:
//   - entity: "hotel" or "country"
//   - result: "committed" or "failed"
var UnitOfWorkSavesTotal = factory.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "unit_of_work_saves_total",
		Help:      "Total number of unit of work commits, by entity and result.",
	},
	[]string{"entity", "result"},
)

// RowsAffectedTotal sums rows reported by successful saves.
var RowsAffectedTotal = factory.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rows_affected_total",
		Help:      "Total number of rows written by committed units of work.",
	},
	[]string{"entity"},
)
