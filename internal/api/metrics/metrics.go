// Package metrics defines and registers all custom Prometheus metrics for the
// property-system API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry at package init via
// promauto; the /metrics endpoint is mounted by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "property"

// ── Access decision metrics ──────────────────────────────────────────────────

// AccessDecisionsTotal counts access verdicts made at the decision point.
// Labels:
//   - verdict: "allow" or "deny"
//   - reason: "" for allows; "wrong_role" or "missing_permission" for denies
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of access decisions, by verdict and denial reason.",
	},
	[]string{"verdict", "reason"},
)

// PermissionResolveDuration measures end-to-end permission resolution,
// including cache lookups.
var PermissionResolveDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "permission_resolve_duration_seconds",
		Help:      "Duration of effective permission set resolution.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Permission cache metrics ─────────────────────────────────────────────────

// CacheInvalidationsTotal counts explicit cache invalidations.
// Label:
//   - scope: "user", "role", or "all"
var CacheInvalidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_cache_invalidations_total",
		Help:      "Total number of explicit permission cache invalidations, by scope.",
	},
	[]string{"scope"},
)

// ── Registration token metrics ───────────────────────────────────────────────

// TokensIssuedTotal counts registration tokens issued.
// Label:
//   - role: the role slug the token grants
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_tokens_issued_total",
		Help:      "Total number of registration tokens issued, by granted role.",
	},
	[]string{"role"},
)

// TokensConsumedTotal counts registration tokens consumed by a successful
// registration.
var TokensConsumedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_tokens_consumed_total",
		Help:      "Total number of registration tokens consumed.",
	},
)

// ── Session metrics ──────────────────────────────────────────────────────────

// LoginsTotal counts password login attempts.
// Label:
//   - result: "success", "invalid_credentials", or "inactive"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// LoginAsSessionsTotal counts impersonation session transitions.
// Label:
//   - action: "start", "exit", or "denied"
var LoginAsSessionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_as_sessions_total",
		Help:      "Total number of impersonation session transitions, by action.",
	},
	[]string{"action"},
)
