// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"context"

	"github.com/tomtom215/aegis/internal/token"
)

// contextKey is the private type for context keys in this package.
type contextKey string

// callerKey carries the verified identity of the authenticated caller,
// set by the bearer-token middleware.
const callerKey contextKey = "caller"

func contextWithCaller(ctx context.Context, ident *token.Identity) context.Context {
	return context.WithValue(ctx, callerKey, ident)
}

// callerFromContext returns the verified caller identity. ok is false on
// routes that did not pass through the bearer-token middleware.
func callerFromContext(ctx context.Context) (*token.Identity, bool) {
	ident, ok := ctx.Value(callerKey).(*token.Identity)
	return ident, ok
}
