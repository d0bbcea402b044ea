// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/validation"
)

// maxRequestBody bounds JSON request bodies. Policy documents are the
// largest legitimate payload and stay well under this.
const maxRequestBody = 1 << 20 // 1 MiB

// sanitizeLogValue removes control characters from strings to prevent log
// injection. Newlines and other control characters in attacker-supplied
// values could otherwise forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. A false return means the error response has already been
// written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid JSON body: " + err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getTimeParam parses an RFC 3339 query parameter. Returns nil when the
// parameter is absent or malformed.
func getTimeParam(r *http.Request, key string) *time.Time {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

// parseCommaSeparated parses a comma-separated query value into a slice.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// pageParams extracts limit/offset, clamped to the configured maximum.
func pageParams(r *http.Request, cfg config.APIConfig) (limit, offset int) {
	limit = getIntParam(r, "limit", cfg.DefaultPageSize)
	if limit <= 0 {
		limit = cfg.DefaultPageSize
	}
	if ceil := cfg.MaxPageSize; ceil > 0 && limit > ceil {
		limit = ceil
	}

	offset = getIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// clientAddr parses the request's remote address. The RealIP middleware
// has already rewritten RemoteAddr from X-Forwarded-For when present.
func clientAddr(r *http.Request) netip.Addr {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr
}

// clientIP returns the client address as a string for session records and
// audit events, falling back to the raw RemoteAddr when unparseable.
func clientIP(r *http.Request) string {
	if addr := clientAddr(r); addr.IsValid() {
		return addr.String()
	}
	return r.RemoteAddr
}

// loggerFrom returns the request-scoped logger.
func loggerFrom(r *http.Request) zerolog.Logger {
	return logging.LoggerFromContext(r.Context())
}

// adminActor builds the audit actor for the authenticated caller.
func adminActor(r *http.Request, users *identity.Registry) audit.Actor {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		return audit.SystemActor()
	}

	var name string
	var roles []string
	if u, err := users.ByID(caller.UserID); err == nil {
		name = u.Username
		roles = u.Roles
	}
	return audit.ActorFromSubject(caller.UserID, name, roles, caller.SessionID)
}

// requestEnvironment builds the evaluation environment for a request:
// current time, caller address and the request id for audit correlation.
func requestEnvironment(r *http.Request) authz.Environment {
	return authz.Environment{
		Time:      time.Now().UTC(),
		IP:        clientAddr(r),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}
