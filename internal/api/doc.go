// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package api exposes the decision engine over HTTP: authentication and
// session lifecycle, role/permission/policy administration, attribute
// definitions, the POST /authz/check evaluation endpoint, the decision
// log query surface and the live audit stream.
//
// Routing uses chi with per-group middleware stacks. Every response is
// wrapped in the APIResponse envelope; domain errors are translated to
// stable machine-readable codes by writeDomainError. Authentication
// failures deliberately collapse to a generic message so the API never
// reveals whether an account exists or why a credential was rejected;
// the specific reason goes to the audit log instead.
//
// Administrative endpoints are authorized by the engine itself: each
// admin route names an action on the "iam" resource type and the
// caller's subject is evaluated against the live snapshot before the
// handler runs.
package api
