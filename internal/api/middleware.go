// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// ChiMiddlewareConfig holds configuration for the middleware factories.
type ChiMiddlewareConfig struct {
	// Browser cross-origin policy
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Default request throttle, applied where no per-group limit is
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// Development relaxes the security-header policy for plain-HTTP use.
	Development bool
}

// DefaultChiMiddlewareConfig returns the default middleware configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		CORSMaxAge:         300,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// NewChiMiddlewareFromAPI bridges the loaded API configuration to the
// middleware factories. AllowCredentials stays off: authentication is
// bearer-token only, so browser credentials never need to cross origins.
func NewChiMiddlewareFromAPI(cfg config.APIConfig, development bool) *ChiMiddleware {
	mc := DefaultChiMiddlewareConfig()
	if len(cfg.CORSOrigins) > 0 {
		mc.CORSAllowedOrigins = cfg.CORSOrigins
	}
	if cfg.RateLimitReqs > 0 {
		mc.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		mc.RateLimitWindow = cfg.RateLimitWindow
	}
	mc.RateLimitDisabled = cfg.RateLimitDisabled
	mc.Development = development
	return NewChiMiddleware(mc)
}

// ChiMiddleware provides Chi-compatible middleware factories built on the
// go-chi ecosystem and unrolled/secure.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
	sec    *secure.Secure
}

// NewChiMiddleware creates a middleware factory with the given configuration.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		ExposedHeaders:   cfg.CORSExposedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	})

	// The CSP permits the inline bootstrap of the swagger UI page; every
	// API response is JSON and unaffected by it.
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.Development,
	})

	return &ChiMiddleware{
		config: cfg,
		cors:   corsHandler,
		sec:    sec,
	}
}

// CORS returns the CORS middleware. It must be mounted globally so OPTIONS
// preflight requests are answered before routing.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// SecureHeaders returns the security-header middleware (unrolled/secure).
func (m *ChiMiddleware) SecureHeaders() func(http.Handler) http.Handler {
	return m.sec.Handler
}

// RateLimitConfig defines rate limit parameters for one endpoint group.
type RateLimitConfig struct {
	Requests int           // allowed requests per window
	Window   time.Duration // span the count resets over
}

// Endpoint-group rate limits. Auth endpoints are limited hard because they
// are the brute-force surface; decision checks and health probes are hot
// paths and stay permissive.
var (
	// RateLimitAuth covers token refresh, logout and recovery endpoints.
	RateLimitAuth = RateLimitConfig{Requests: 10, Window: time.Minute}

	// RateLimitLogin is the strictest limit: credential and MFA guessing.
	RateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}

	// RateLimitWrite covers administrative mutations.
	RateLimitWrite = RateLimitConfig{Requests: 30, Window: time.Minute}

	// RateLimitCheck covers decision evaluation, the hottest endpoint.
	RateLimitCheck = RateLimitConfig{Requests: 1000, Window: time.Minute}

	// RateLimitHealth allows frequent probes from monitoring tools.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// RateLimit returns the default API rate limiter from configuration.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitCustom returns a limiter keyed by real client IP. Limited
// requests get the standard error envelope and a rate-limit metric hit.
func (m *ChiMiddleware) RateLimitCustom(rl RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		rl.Requests,
		rl.Window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// rateLimitExceeded is the shared WithLimitHandler for all limiters.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.WithLabelValues(routePattern(r)).Inc()
	NewResponseWriter(w, r).TooManyRequests("rate limit exceeded", 0)
}

// RequestIDWithLogging adds the X-Request-ID header and threads the id
// through the logging context so every log line and audit event emitted
// while handling the request carries it.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			logger := logging.Logger().With().Str("request_id", requestID).Logger()
			ctx = logging.ContextWithLogger(ctx, logger)

			w.Header().Set("X-Request-ID", requestID)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Metrics records request count and latency per route pattern. The chi
// pattern is used instead of the raw path to keep label cardinality bounded.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			endpoint := routePattern(r)
			metrics.APIRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
			metrics.APIRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the chi route pattern matched so far, falling back
// to the raw path outside chi routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Administrative actions, evaluated against the iam resource type by the
// engine itself. A bootstrap role holding a ("iam", "*") permission covers
// all of them.
const (
	adminResourceType = "iam"

	actionRolesRead     = "roles.read"
	actionRolesWrite    = "roles.write"
	actionPermsRead     = "permissions.read"
	actionPermsWrite    = "permissions.write"
	actionPoliciesRead  = "policies.read"
	actionPoliciesWrite = "policies.write"
	actionAttrsRead     = "attributes.read"
	actionAttrsWrite    = "attributes.write"
	actionUsersRead     = "users.read"
	actionUsersWrite    = "users.write"
	actionAuditRead     = "audit.read"
	actionSimulate      = "simulate"
)

// authenticate verifies the bearer token and stashes the caller identity
// in the request context. Verification is stateless; revocation takes
// effect at the next refresh.
func (router *Router) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
			return
		}

		ident, err := router.tokens.VerifyAccessToken(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithCaller(r.Context(), ident)))
	})
}

// requirePermission authorizes the caller through the decision engine:
// the named action on the iam resource type, evaluated against the live
// snapshot. Admin access is therefore governed by the same roles and
// policies the engine serves.
func (router *Router) requirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := callerFromContext(r.Context())
			if !ok {
				NewResponseWriter(w, r).Unauthorized(genericAuthMessage)
				return
			}

			sub, err := router.resolver.Resolve(caller.UserID, caller.Trust)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}

			decision := router.evaluator.Evaluate(r.Context(), sub, action,
				authz.Resource{Type: adminResourceType}, requestEnvironment(r))
			if !decision.Allowed {
				NewResponseWriter(w, r).Forbidden("permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
