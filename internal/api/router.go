// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/store"
	"github.com/tomtom215/aegis/internal/token"
)

// RouterConfig carries everything the HTTP layer depends on. Stream and
// Federation are optional: a nil Federation leaves the OIDC routes
// unmounted, a nil Stream makes /audit/stream answer 503.
type RouterConfig struct {
	Config     *config.Config
	Mirror     *store.Mirror
	Evaluator  *authz.Evaluator
	Resolver   *identity.Resolver
	Tokens     *token.Service
	Audit      *audit.Logger
	Stream     *audit.StreamHub
	Federation *identity.Federation
	Version    string

	// Development relaxes the security-header policy for plain-HTTP use.
	Development bool
}

// Router wires the handler groups into a Chi route tree.
type Router struct {
	cfg *config.Config
	mw  *ChiMiddleware

	tokens    *token.Service
	resolver  *identity.Resolver
	evaluator *authz.Evaluator

	auth       *AuthHandlers
	check      *CheckHandlers
	roles      *RoleHandlers
	perms      *PermissionHandlers
	policies   *PolicyHandlers
	users      *UserHandlers
	attrs      *AttributeHandlers
	audit      *AuditHandlers
	health     *HealthHandlers
	federation *FederationHandlers
}

// NewRouter builds the router and its handler groups from the wired
// services.
func NewRouter(rc RouterConfig) *Router {
	router := &Router{
		cfg:       rc.Config,
		mw:        NewChiMiddlewareFromAPI(rc.Config.API, rc.Development),
		tokens:    rc.Tokens,
		resolver:  rc.Resolver,
		evaluator: rc.Evaluator,

		auth:     NewAuthHandlers(rc.Tokens, rc.Mirror.Users, rc.Mirror, rc.Audit),
		check:    NewCheckHandlers(rc.Evaluator, rc.Resolver, rc.Mirror.Attributes, rc.Config.Authz.ExposeReasons),
		roles:    NewRoleHandlers(rc.Mirror, rc.Audit),
		perms:    NewPermissionHandlers(rc.Mirror, rc.Audit),
		policies: NewPolicyHandlers(rc.Mirror, rc.Audit),
		users:    NewUserHandlers(rc.Mirror, rc.Tokens, rc.Audit, rc.Config.API),
		attrs:    NewAttributeHandlers(rc.Mirror, rc.Audit),
		audit:    NewAuditHandlers(rc.Audit, rc.Stream, rc.Config.API),
		health:   NewHealthHandlers(rc.Mirror, rc.Audit, rc.Version),
	}
	if rc.Federation != nil {
		router.federation = NewFederationHandlers(rc.Federation, rc.Tokens)
	}
	return router
}

// Setup assembles the full route tree. Middleware is layered per group:
// request-id, real-ip, recovery and CORS run globally; rate limits,
// metrics, security headers and authentication are scoped to the groups
// that need them.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// CORS is global so OPTIONS preflight is answered before routing.
	r.Use(router.mw.CORS())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed,
			ErrCodeBadRequest, "method not allowed")
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))

		r.Get("/", router.health.Live)
		r.Get("/ready", router.health.Ready)
	})

	// ========================
	// Authentication
	// ========================
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitAuth))
		r.Use(Metrics())

		// Credential and MFA guessing get the strictest limit.
		r.With(router.mw.RateLimitCustom(RateLimitLogin)).
			Post("/login", router.auth.Login)
		r.With(router.mw.RateLimitCustom(RateLimitLogin)).
			Post("/mfa/verify", router.auth.VerifyMFA)

		r.Post("/register", router.auth.Register)
		r.Post("/refresh", router.auth.Refresh)
		r.Post("/password/forgot", router.auth.ForgotPassword)
		r.Post("/password/reset", router.auth.ResetPassword)
		r.Post("/email/verify", router.auth.VerifyEmail)

		if router.federation != nil {
			r.Get("/oidc/login", router.federation.Start)
			r.Get("/oidc/callback", router.federation.Callback)
		}

		// Session-bound endpoints
		r.Group(func(r chi.Router) {
			r.Use(router.authenticate)

			r.Post("/logout", router.auth.Logout)
			r.Get("/me", router.auth.Me)
			r.Get("/sessions", router.auth.Sessions)
			r.Delete("/sessions/{id}", router.auth.RevokeSession)
			r.Post("/password/change", router.auth.ChangePassword)

			r.Post("/mfa/setup", router.auth.MFASetup)
			r.Post("/mfa/confirm", router.auth.MFAConfirm)
			r.Delete("/mfa", router.auth.MFADisable)
			r.Post("/mfa/backup-codes", router.auth.MFABackupCodes)
		})
	})

	// ========================
	// Decision Evaluation
	// ========================
	// The hot path: permissive rate limit, no security headers, no
	// write limiter.
	r.Route("/api/v1/authz", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitCheck))
		r.Use(Metrics())
		r.Use(router.authenticate)

		r.Post("/check", router.check.Check)
	})

	// ========================
	// Administration
	// ========================
	// Every admin route is authorized through the decision engine
	// itself: the named action on the iam resource type.
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(Metrics())
		r.Use(router.mw.SecureHeaders())
		r.Use(router.authenticate)

		r.Route("/roles", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.requirePermission(actionRolesRead))

				r.Get("/", router.roles.List)
				r.Get("/{id}", router.roles.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(router.mw.RateLimitCustom(RateLimitWrite))
				r.Use(router.requirePermission(actionRolesWrite))

				r.Post("/", router.roles.Create)
				r.Put("/{id}", router.roles.Update)
				r.Delete("/{id}", router.roles.Delete)
				r.Post("/{id}/parents", router.roles.AddParent)
				r.Delete("/{id}/parents/{parentID}", router.roles.RemoveParent)
				r.Post("/{id}/permissions", router.roles.GrantPermission)
				r.Delete("/{id}/permissions/{permissionID}", router.roles.RevokePermission)
			})
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.requirePermission(actionPermsRead))

				r.Get("/", router.perms.List)
				r.Get("/{id}", router.perms.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(router.mw.RateLimitCustom(RateLimitWrite))
				r.Use(router.requirePermission(actionPermsWrite))

				r.Post("/", router.perms.Create)
				r.Put("/{id}", router.perms.Update)
				r.Delete("/{id}", router.perms.Delete)
			})
		})

		r.Route("/policies", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.requirePermission(actionPoliciesRead))

				r.Get("/", router.policies.List)
				r.Get("/{id}", router.policies.Get)
				r.Get("/{id}/history", router.policies.History)
			})
			r.Group(func(r chi.Router) {
				r.Use(router.mw.RateLimitCustom(RateLimitWrite))
				r.Use(router.requirePermission(actionPoliciesWrite))

				r.Post("/", router.policies.Create)
				r.Put("/{id}", router.policies.Update)
				r.Delete("/{id}", router.policies.Delete)
				r.Put("/{id}/active", router.policies.SetActive)
			})
		})

		r.Route("/attributes", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.requirePermission(actionAttrsRead))

				r.Get("/", router.attrs.List)
			})
			r.Group(func(r chi.Router) {
				r.Use(router.mw.RateLimitCustom(RateLimitWrite))
				r.Use(router.requirePermission(actionAttrsWrite))

				r.Post("/", router.attrs.Define)
				r.Delete("/{path}", router.attrs.Remove)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.requirePermission(actionUsersRead))

				r.Get("/", router.users.List)
				r.Get("/{id}", router.users.Get)
				r.Get("/{id}/sessions", router.users.Sessions)
			})
			r.Group(func(r chi.Router) {
				r.Use(router.mw.RateLimitCustom(RateLimitWrite))
				r.Use(router.requirePermission(actionUsersWrite))

				r.Post("/", router.users.Create)
				r.Put("/{id}", router.users.Update)
				r.Put("/{id}/status", router.users.SetStatus)
				r.Delete("/{id}/sessions", router.users.RevokeSessions)
				r.Post("/{id}/password-reset", router.users.IssuePasswordReset)
				r.Post("/{id}/email-verification", router.users.IssueEmailVerification)
			})
		})
	})

	// ========================
	// Audit Trail
	// ========================
	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(Metrics())
		r.Use(router.authenticate)
		r.Use(router.requirePermission(actionAuditRead))

		r.Get("/events", router.audit.Events)
		r.Get("/events/{id}", router.audit.Event)
		r.Get("/stats", router.audit.Stats)
		r.Get("/verify", router.audit.Verify)
		r.Get("/stream", router.audit.Stream)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	if router.cfg.API.SwaggerEnabled {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
		))
	}

	return r
}
