// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package store is the persistence collaborator for the decision engine.
//
// The engine itself is in-memory: the role graph, policy store, user
// registry and attribute registry answer every runtime read from
// copy-on-write snapshots without touching a database. This package keeps
// a durable mirror of that state and nothing else:
//
//   - At startup the Mirror loads roles, permissions, policies, users and
//     attribute definitions in parallel and publishes them into the
//     engines in one replace per engine.
//   - Every administrative mutation goes through the Mirror, which applies
//     it to the engine first (the engine owns validation and version
//     assignment) and then writes it through to the backend.
//   - If the write-through fails, the Mirror reloads the affected engine
//     from the backend so memory returns to the last persisted state, and
//     the caller sees an UnavailableError.
//
// Two backends exist: MemoryStore for development and tests, and
// PostgresStore on a pgx connection pool. BreakerStore wraps either with a
// circuit breaker; once the breaker opens, calls fail fast with
// UnavailableError instead of stacking up on a dead database. The engine
// keeps serving decisions from its snapshots throughout an outage; only
// administration is degraded.
package store
