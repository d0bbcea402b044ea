// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the decision engine:
// - Authorization decision throughput, latency and outcomes
// - Token lifecycle operations (issue, refresh, revoke, verify)
// - Session store population
// - Audit pipeline health (buffer drops are a paging signal)
// - Persistence collaborator health and circuit breaker state

var (
	// Decision Metrics
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_decisions_total",
			Help: "Total authorization decisions by outcome and deciding source",
		},
		[]string{"outcome", "source"}, // outcome: allow|deny; source: rbac|policy_allow|policy_deny|fail_closed
	)

	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aegis_decision_duration_seconds",
			Help:    "Authorization evaluation latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"resource_type"},
	)

	PoliciesEvaluated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aegis_policies_evaluated_per_decision",
			Help:    "Number of active policies matched against per decision",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	RuleTypeMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_rule_type_mismatches_total",
			Help: "Rules skipped due to operand type mismatches, by operator",
		},
		[]string{"operator"},
	)

	SnapshotVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aegis_authz_snapshot_version",
			Help: "Version of the currently published snapshot per store",
		},
		[]string{"store"}, // store: roles|policies
	)

	SnapshotSwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_authz_snapshot_swaps_total",
			Help: "Total copy-on-write snapshot publications per store",
		},
		[]string{"store"},
	)

	// Token Metrics
	TokenOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_token_operations_total",
			Help: "Token lifecycle operations by type and result",
		},
		[]string{"operation", "result"}, // operation: issue|refresh|verify|revoke; result: ok|error
	)

	RefreshReuseDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_refresh_reuse_detected_total",
			Help: "Refresh token reuse detections (sessions revoked as compromised)",
		},
	)

	MFAVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_mfa_verifications_total",
			Help: "MFA verification attempts by method and result",
		},
		[]string{"method", "result"}, // method: totp|backup_code
	)

	LockoutsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_lockouts_active",
			Help: "Accounts currently locked out",
		},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_auth_attempts_total",
			Help: "Password authentication attempts by result",
		},
		[]string{"result"}, // ok|bad_credentials|locked|mfa_required
	)

	UsersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_users_total",
			Help: "User records currently held in the registry",
		},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_sessions_active",
			Help: "Sessions currently active in the session store",
		},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_sessions_created_total",
			Help: "Total sessions created",
		},
	)

	SessionsRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_sessions_revoked_total",
			Help: "Sessions revoked by cause",
		},
		[]string{"cause"}, // logout|reuse|expired|admin
	)

	// Audit Metrics
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_audit_events_total",
			Help: "Audit events accepted into the pipeline by type",
		},
		[]string{"type"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		},
	)

	AuditBufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_audit_buffer_depth",
			Help: "Events currently queued in the audit buffer",
		},
	)

	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_nats_messages_published_total",
			Help: "Audit events published to NATS",
		},
	)

	NATSPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_nats_publish_errors_total",
			Help: "Failed NATS publish attempts, including breaker rejections",
		},
	)

	// Persistence Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aegis_store_query_duration_seconds",
			Help:    "Persistence collaborator query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_store_errors_total",
			Help: "Persistence collaborator errors by operation and entity",
		},
		[]string{"operation", "entity"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_store_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aegis_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

// RecordDecision records one authorization decision.
func RecordDecision(allowed bool, source, resourceType string, elapsed time.Duration) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	DecisionsTotal.WithLabelValues(outcome, source).Inc()
	DecisionDuration.WithLabelValues(resourceType).Observe(elapsed.Seconds())
}

// RecordTokenOperation records one token lifecycle operation.
func RecordTokenOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TokenOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordNATSPublish records the outcome of one NATS publish attempt.
func RecordNATSPublish(err error) {
	if err != nil {
		NATSPublishErrors.Inc()
		return
	}
	NATSMessagesPublished.Inc()
}

// RecordAPIRequest records one handled API request.
func RecordAPIRequest(method, endpoint string, statusCode int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
