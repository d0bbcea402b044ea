// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/token"
)

// genericAuthMessage is the only message returned for credential and
// token failures. The underlying reason stays in logs and the audit
// trail so responses cannot be used to probe which accounts exist.
const genericAuthMessage = "authentication failed"

// writeDomainError translates engine errors into HTTP responses with
// stable machine-readable codes. Unrecognized errors become 500s with
// no internal detail in the body.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var (
		invalid  *authz.ValidationError
		notFound *authz.NotFoundError
		locked   *token.LockedOutError
	)

	switch {
	case errors.As(err, &invalid):
		var details interface{}
		if invalid.Field != "" {
			details = map[string]string{invalid.Field: invalid.Detail}
		}
		rw.ValidationError(invalid.Detail, details)

	case errors.As(err, &notFound):
		rw.NotFound(notFound.Error())

	case errors.As(err, &locked):
		rw.TooManyRequests("too many failed attempts", locked.Remaining)

	case token.IsMfaRequired(err):
		rw.Error(http.StatusForbidden, ErrCodeMfaRequired, "multi-factor verification required")

	case token.IsAuthentication(err),
		token.IsRevokedSession(err),
		errors.Is(err, identity.ErrUserNotActive):
		logger := logging.LoggerFromContext(r.Context())
		logger.Debug().Err(err).Msg("Authentication rejected")
		rw.Unauthorized(genericAuthMessage)

	case authz.IsCycle(err):
		rw.Conflict(err.Error())

	case authz.IsUnavailable(err):
		rw.ServiceUnavailable("service temporarily unavailable")

	default:
		logger := logging.LoggerFromContext(r.Context())
		logger.Error().Err(err).Msg("Unhandled error in API handler")
		rw.InternalError("an internal error occurred")
	}
}
