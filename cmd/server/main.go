// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package main is the Aegis server entry point.
//
// It wires the decision engines, persistence, audit pipeline, token
// service and HTTP surface together under a supervisor tree, then runs
// until SIGINT or SIGTERM. See doc.go for the full architecture notes.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	_ "github.com/duckdb/duckdb-go/v2" // database/sql driver for the audit log

	_ "github.com/tomtom215/aegis/docs" // generated swagger spec
	"github.com/tomtom215/aegis/internal/api"
	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/store"
	"github.com/tomtom215/aegis/internal/supervisor"
	"github.com/tomtom215/aegis/internal/supervisor/services"
	"github.com/tomtom215/aegis/internal/token"
)

// version is set via ldflags at build time.
var version = "dev"

// bootstrapPermissionID and bootstrapRoleID name the seeded admin
// grant. Fixed IDs keep re-seeding idempotent across restarts.
const (
	bootstrapPermissionID = "iam-admin"
	bootstrapRoleID       = "admin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Aegis")
	logging.Info().
		Str("store_driver", cfg.Store.Driver).
		Str("session_store", cfg.Session.Store).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Bool("oidc_enabled", cfg.OIDC.Enabled).
		Bool("lockout_enabled", cfg.Lockout.Enabled).
		Msg("Configuration loaded")

	warnRiskySettings(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DECISION ENGINES AND PERSISTENCE ===

	graph := authz.NewRoleGraph()
	policies := authz.NewPolicyStore()
	users := identity.NewRegistry()
	attrs := identity.NewAttributeRegistry()

	backing, closeStore, err := openBackingStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize persistence store")
	}
	defer closeStore()

	mirror := store.NewMirror(backing, graph, policies, users, attrs)
	if err := mirror.Load(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load engine snapshot from store")
	}
	logging.Info().Int("users", len(users.List())).Msg("Engine snapshot loaded")

	if err := seedBootstrapAdmin(ctx, cfg, mirror); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed bootstrap administrator")
	}

	// === AUDIT PIPELINE ===

	auditor, auditDB, err := initAudit(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit pipeline")
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
		if auditDB != nil {
			if err := auditDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit database")
			}
		}
	}()

	evaluator := authz.NewEvaluator(graph, policies, auditor)
	resolver := identity.NewResolver(users)

	// === TOKENS AND SESSIONS ===

	secret := cfg.Token.Secret
	if secret == "" {
		secret, err = generateEphemeralSecret()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to generate signing secret")
		}
		logging.Warn().Msg("JWT_SECRET is not set; using an ephemeral signing secret")
		logging.Warn().Msg("Issued tokens will not survive a restart")
	}

	jwtManager, err := token.NewManager(token.ManagerConfig{
		Secret:     secret,
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		ResetTTL:   cfg.Token.ResetTTL,
		VerifyTTL:  cfg.Token.VerifyTTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	sessions, closeSessions, err := openSessionStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer closeSessions()

	guard := token.NewLockoutGuard(token.LockoutConfig{
		Enabled:      cfg.Lockout.Enabled,
		MaxAttempts:  cfg.Lockout.MaxAttempts,
		BaseDuration: cfg.Lockout.BaseDuration,
		MaxDuration:  cfg.Lockout.MaxDuration,
		TrackByIP:    cfg.Lockout.TrackByIP,
		RetainFor:    cfg.Lockout.RetainFor,
	})
	mfa := token.NewMFAManager(users, cfg.MFA.Issuer)
	tokens := token.NewService(users, sessions, jwtManager, mfa, guard, auditor, token.ServiceConfig{
		SessionTTL: cfg.Session.TTL,
	})

	// === LIVE AUDIT STREAM ===

	var hub *audit.StreamHub
	if cfg.Audit.Enabled && cfg.Audit.StreamEnabled {
		hub = audit.NewStreamHub(0, 0)
	}

	// === NATS PUBLISHING (requires -tags nats) ===

	natsComponents, err := InitNATS(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS publishing")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		natsComponents.Shutdown(shutdownCtx)
	}()

	wireAuditNotifiers(auditor, hub, natsComponents.Publisher())

	// === OIDC FEDERATION ===

	var federation *identity.Federation
	if cfg.OIDC.Enabled {
		fedCtx, fedCancel := context.WithTimeout(ctx, cfg.OIDC.RequestTimeout)
		federation, err = identity.NewFederation(fedCtx, identity.FederationConfig{
			IssuerURL:      cfg.OIDC.IssuerURL,
			ClientID:       cfg.OIDC.ClientID,
			ClientSecret:   cfg.OIDC.ClientSecret,
			RedirectURL:    cfg.OIDC.RedirectURL,
			Scopes:         cfg.OIDC.Scopes,
			PKCEEnabled:    cfg.OIDC.PKCEEnabled,
			RolesClaim:     cfg.OIDC.RolesClaim,
			UsernameClaims: cfg.OIDC.UsernameClaims,
			DefaultRoles:   cfg.OIDC.DefaultRoles,
			HTTPClient:     &http.Client{Timeout: cfg.OIDC.RequestTimeout},
		}, users)
		fedCancel()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to configure OIDC federation")
		}
		logging.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC federation configured")
	}

	// === HTTP SURFACE ===

	router := api.NewRouter(api.RouterConfig{
		Config:      cfg,
		Mirror:      mirror,
		Evaluator:   evaluator,
		Resolver:    resolver,
		Tokens:      tokens,
		Audit:       auditor,
		Stream:      hub,
		Federation:  federation,
		Version:     version,
		Development: !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Authz.SyncInterval > 0 {
		tree.AddStoreService(services.NewMirrorRefreshService(mirror, cfg.Authz.SyncInterval))
		logging.Info().Dur("interval", cfg.Authz.SyncInterval).Msg("Periodic snapshot refresh enabled")
	}
	tree.AddStoreService(services.NewSessionSweeperService(tokens, cfg.Session.CleanupInterval))
	if cfg.Lockout.Enabled {
		// Zero interval lets the guard pick its own sweep cadence.
		tree.AddStoreService(services.NewLockoutSweeperService(guard, 0))
	}
	if cfg.Audit.Enabled {
		tree.AddStoreService(services.NewAuditCleanupService(auditor))
	}

	if hub != nil {
		tree.AddMessagingService(services.NewAuditStreamService(hub))
		logging.Info().Msg("Live audit stream enabled")
	}
	AddNATSToSupervisor(tree, natsComponents)

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server registered with supervisor")

	// === SIGNAL HANDLING AND SERVE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down supervisor tree")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree terminated unexpectedly")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil {
		for _, entry := range unstopped {
			logging.Warn().Str("service", entry.Name).Msg("Service did not stop before timeout")
		}
	}

	logging.Info().Msg("Aegis stopped gracefully")
}

// warnRiskySettings calls out configuration that weakens the security
// posture. None of these block startup; validation already rejected the
// combinations that are outright unsafe in production.
func warnRiskySettings(cfg *config.Config) {
	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("==========================================================")
		logging.Warn().Msg("Rate limiting is DISABLED on authentication endpoints")
		logging.Warn().Msg("Credential stuffing and brute-force attempts are unthrottled")
		logging.Warn().Msg("==========================================================")
	}
	for _, origin := range cfg.API.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows all origins; restrict API_CORS_ORIGINS for production")
		}
	}
	if cfg.IsProduction() && cfg.Session.Store == "memory" {
		logging.Warn().Msg("Memory session store in production: sessions are lost on restart")
		logging.Warn().Msg("and cannot be shared between instances. Set SESSION_STORE=badger or redis.")
	}
	if cfg.IsProduction() && cfg.Audit.HashKey == "" {
		logging.Warn().Msg("AUDIT_HASH_KEY is not set; audit events are stored without an integrity chain")
	}
}

// openBackingStore selects the persistence backend. The postgres driver
// is wrapped in a circuit breaker so a database outage degrades writes
// fast instead of hanging every request in the pool.
func openBackingStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		logging.Info().Msg("Using in-memory persistence store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := store.NewPool(ctx, store.PoolConfig{
		DSN:         cfg.Store.PostgresDSN,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
		ConnTimeout: cfg.Store.ConnTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres schema: %w", err)
	}

	breaker := store.NewBreakerStore(pg, store.BreakerConfig{
		MaxRequests:      cfg.Store.BreakerMaxRequests,
		Interval:         cfg.Store.BreakerInterval,
		Timeout:          cfg.Store.BreakerTimeout,
		FailureThreshold: cfg.Store.BreakerThreshold,
	})
	logging.Info().Msg("PostgreSQL persistence store initialized")
	return breaker, pool.Close, nil
}

// openSessionStore selects the session backend from config. Memory is
// the default and needs no cleanup; badger and redis return closers.
func openSessionStore(cfg *config.Config) (token.Store, func(), error) {
	switch cfg.Session.Store {
	case "badger":
		opts := badger.DefaultOptions(cfg.Session.BadgerPath)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger session store: %w", err)
		}
		logging.Info().Str("path", cfg.Session.BadgerPath).Msg("BadgerDB session store opened")
		return token.NewBadgerStore(db), func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing badger session store")
			}
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis session store: %w", err)
		}
		logging.Info().Str("addr", cfg.Session.RedisAddr).Msg("Redis session store connected")
		return token.NewRedisStore(client), func() {
			if err := client.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing redis session store")
			}
		}, nil

	default:
		return token.NewMemoryStore(), func() {}, nil
	}
}

// initAudit builds the audit pipeline. With auditing disabled the
// logger still exists so handlers have a sink, but events are dropped
// and no database is opened. An empty DB path opens DuckDB in memory.
func initAudit(ctx context.Context, cfg *config.Config) (*audit.Logger, *sql.DB, error) {
	acfg := audit.DefaultConfig()
	acfg.Enabled = cfg.Audit.Enabled
	acfg.LogToStdout = cfg.Audit.LogToStdout
	if cfg.Audit.BufferSize > 0 {
		acfg.BufferSize = cfg.Audit.BufferSize
	}
	if cfg.Audit.RetentionDays > 0 {
		acfg.RetentionDays = cfg.Audit.RetentionDays
	}
	if cfg.Audit.CleanupInterval > 0 {
		acfg.CleanupInterval = cfg.Audit.CleanupInterval
	}

	var chain *audit.Chainer
	if cfg.Audit.HashKey != "" {
		var err error
		chain, err = audit.NewChainer([]byte(cfg.Audit.HashKey))
		if err != nil {
			return nil, nil, fmt.Errorf("create hash chainer: %w", err)
		}
	}

	if !cfg.Audit.Enabled {
		return audit.NewLogger(audit.NewMemoryStore(1), chain, acfg), nil, nil
	}

	db, err := sql.Open("duckdb", cfg.Audit.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit database: %w", err)
	}
	duckStore := audit.NewDuckDBStore(db)
	if err := duckStore.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create audit schema: %w", err)
	}

	auditor := audit.NewLogger(duckStore, chain, acfg)
	if err := auditor.ResumeChain(ctx); err != nil {
		_ = auditor.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("resume audit hash chain: %w", err)
	}

	target := cfg.Audit.DBPath
	if target == "" {
		target = "(in-memory)"
	}
	logging.Info().Str("db", target).Bool("chained", chain != nil).Msg("Audit pipeline initialized")
	return auditor, db, nil
}

// wireAuditNotifiers fans sealed audit events out to the optional live
// stream hub and NATS publisher. The logger takes a single callback, so
// multiple sinks are composed here.
func wireAuditNotifiers(auditor *audit.Logger, hub *audit.StreamHub, pub *audit.Publisher) {
	var sinks []func(audit.Event)
	if hub != nil {
		sinks = append(sinks, hub.BroadcastEvent)
	}
	if pub != nil {
		sinks = append(sinks, pub.Enqueue)
	}

	switch len(sinks) {
	case 0:
	case 1:
		auditor.SetNotifier(sinks[0])
	default:
		auditor.SetNotifier(func(e audit.Event) {
			for _, sink := range sinks {
				sink(e)
			}
		})
	}
}

// seedBootstrapAdmin creates the initial administrator on an empty
// store: an admin role holding the ("iam", "*") permission and the
// configured user. Skipped once any user exists, so deleting the
// bootstrap account later cannot be undone by a restart.
func seedBootstrapAdmin(ctx context.Context, cfg *config.Config, mirror *store.Mirror) error {
	if cfg.Bootstrap.AdminUsername == "" {
		return nil
	}
	if len(mirror.Users.List()) > 0 {
		logging.Debug().Msg("Users already exist; skipping bootstrap admin")
		return nil
	}

	perm, err := mirror.UpsertPermission(ctx, authz.Permission{
		ID:           bootstrapPermissionID,
		ResourceType: "iam",
		Action:       "*",
	})
	if err != nil {
		return fmt.Errorf("seed admin permission: %w", err)
	}
	if err := mirror.UpsertRole(ctx, authz.Role{
		ID:          bootstrapRoleID,
		Name:        "Administrator",
		Permissions: []string{perm.ID},
	}); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}

	hash, err := identity.HashPassword(cfg.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user, err := mirror.CreateUser(ctx, identity.User{
		Username:      cfg.Bootstrap.AdminUsername,
		Email:         cfg.Bootstrap.AdminEmail,
		PasswordHash:  hash,
		Status:        identity.StatusActive,
		EmailVerified: true,
		Roles:         []string{bootstrapRoleID},
	})
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	logging.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("Bootstrap administrator created")
	return nil
}

// generateEphemeralSecret mints a random signing secret for development
// runs that leave JWT_SECRET unset. Production validation refuses an
// empty secret before this point is reached.
func generateEphemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
