// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package audit records the decision log: every authorization decision
// and every authentication lifecycle event, durable and tamper-evident.
//
// The evaluator and the token service hand their events to the Logger
// through the RecordDecision and RecordAuth sinks. Recording is
// asynchronous and never blocks a decision; a full buffer drops the
// event with a warning log and a counter increment, never silently.
//
// # Event Types
//
// Events are categorized into the following groups:
//
// Authorization Events:
//   - authz.decision: One event per evaluation, allow and deny alike.
//     The reason chain, deciding source, and snapshot versions are
//     recorded in metadata; callers only ever see the verdict.
//
// Authentication Events:
//   - auth.login, auth.mfa_verify, auth.issue, auth.refresh: Credential
//     and token lifecycle
//   - auth.reuse_detected: Refresh token replay, the one critical signal
//   - auth.logout, auth.revoke, auth.revoke_all: Session termination
//   - auth.password_reset_requested, auth.password_reset,
//     auth.password_change, auth.email_verified: Account recovery
//   - auth.lockout: Lockouts from repeated failures
//
// Administrative Events:
//   - admin.user_changed, admin.role_changed, admin.policy_changed,
//     admin.attribute_changed, admin.action: Management API changes
//
// # Architecture
//
// The audit system uses a producer-consumer pattern:
//
//	RecordDecision / RecordAuth / Log
//	        |
//	   Event Buffer (chan) -> Async Writer -> Chainer.Seal -> Store
//	        |                      |                            |
//	    Non-blocking        Single goroutine              DuckDB or memory
//	                               |
//	                           Notifier -> StreamHub / NATS Publisher
//
// A single writer goroutine drains the buffer, so events enter the hash
// chain in a well-defined order.
//
// # Integrity Chain
//
// Each event carries an HMAC-SHA256 hash over its canonical fields plus
// the previous event's hash. VerifyRange walks a stored range in chain
// order and reports the first event that fails to link or re-hash.
// ResumeChain continues the chain across restarts from the newest
// persisted event.
//
// # Usage Example
//
//	store := audit.NewDuckDBStore(db)
//	chain, _ := audit.NewChainer(secret)
//	logger := audit.NewLogger(store, chain, audit.DefaultConfig())
//	defer logger.Close()
//
//	_ = logger.ResumeChain(ctx)
//	logger.StartCleanupRoutine(ctx)
//
//	// Wire into the evaluator and token service as their audit sink,
//	// then query the decision log:
//	filter := audit.DefaultQueryFilter()
//	filter.Types = []audit.EventType{audit.EventTypeDecision}
//	filter.ActorID = "user123"
//	events, err := logger.Query(ctx, filter)
//
// # Live Stream and NATS
//
// StreamHub fans sealed events out to websocket subscribers with a
// token-bucket guard on broadcast volume. With the nats build tag, the
// Publisher forwards events to JetStream subjects (audit.<type>) behind
// a circuit breaker.
//
// # Retention Policy
//
// StartCleanupRoutine deletes events older than RetentionDays at the
// configured interval. Deleting a prefix of the chain is fine: range
// verification takes the first event's PrevHash on trust.
//
// # See Also
//
//   - internal/authz: Decision producer
//   - internal/token: Authentication event producer
//   - internal/api: Query, verification, and stream handlers
package audit
