// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

/*
Package main wires the Aegis server together and runs it under a
supervisor tree.

# Supervisor Tree

All long-running work is owned by suture supervisors. A panicking or
erroring service is restarted with exponential backoff; the layers shut
down in reverse order on termination so the HTTP surface drains before
the stores close.

	aegis (root)
	├── store (supervisor)
	│   ├── mirror-refresh      periodic engine snapshot reload (AUTHZ_SYNC_INTERVAL > 0)
	│   ├── session-sweeper     expired session cleanup
	│   ├── lockout-sweeper     idle lockout entry cleanup (LOCKOUT_ENABLED)
	│   └── audit-cleanup       audit retention enforcement (AUDIT_ENABLED)
	├── messaging (supervisor)
	│   ├── audit-stream        websocket fan-out hub (AUDIT_STREAM_ENABLED)
	│   └── event-publisher     NATS JetStream publishing (-tags nats, NATS_ENABLED)
	└── api (supervisor)
	    └── http-server         chi router on HTTP_HOST:HTTP_PORT

# Configuration

Configuration is flat environment variables mapped onto a nested tree by
the koanf loader, with an optional YAML file underneath. The variables:

	Server     HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT,
	           HTTP_IDLE_TIMEOUT, SHUTDOWN_TIMEOUT, ENVIRONMENT
	Bootstrap  ADMIN_USERNAME, ADMIN_PASSWORD, ADMIN_EMAIL
	Tokens     JWT_SECRET, JWT_ISSUER, ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL,
	           RESET_TOKEN_TTL, VERIFY_TOKEN_TTL
	MFA        MFA_ISSUER
	Lockout    LOCKOUT_ENABLED, LOCKOUT_MAX_ATTEMPTS, LOCKOUT_BASE_DURATION,
	           LOCKOUT_MAX_DURATION, LOCKOUT_TRACK_BY_IP, LOCKOUT_RETAIN_FOR
	Sessions   SESSION_STORE (memory|badger|redis), SESSION_TTL,
	           SESSION_CLEANUP_INTERVAL, SESSION_BADGER_PATH,
	           REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
	Engine     AUTHZ_SYNC_INTERVAL, AUTHZ_EXPOSE_REASONS
	Store      STORE_DRIVER (memory|postgres), POSTGRES_DSN, STORE_MAX_CONNS,
	           STORE_MIN_CONNS, STORE_CONN_TIMEOUT, BREAKER_MAX_REQUESTS,
	           BREAKER_INTERVAL, BREAKER_TIMEOUT, BREAKER_THRESHOLD
	Audit      AUDIT_ENABLED, AUDIT_DB_PATH, AUDIT_BUFFER_SIZE,
	           AUDIT_RETENTION_DAYS, AUDIT_CLEANUP_INTERVAL, AUDIT_HASH_KEY,
	           AUDIT_STREAM_ENABLED, AUDIT_LOG_TO_STDOUT
	NATS       NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR,
	           NATS_MAX_MEMORY, NATS_MAX_STORE, NATS_RETENTION_DAYS
	OIDC       OIDC_ENABLED, OIDC_ISSUER_URL, OIDC_CLIENT_ID,
	           OIDC_CLIENT_SECRET, OIDC_REDIRECT_URL, OIDC_SCOPES,
	           OIDC_PKCE_ENABLED, OIDC_ROLES_CLAIM, OIDC_DEFAULT_ROLES,
	           OIDC_USERNAME_CLAIMS, OIDC_REQUEST_TIMEOUT
	API        API_DEFAULT_PAGE_SIZE, API_MAX_PAGE_SIZE, RATE_LIMIT_REQUESTS,
	           RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS,
	           TRUSTED_PROXIES, SWAGGER_ENABLED
	Logging    LOG_LEVEL, LOG_FORMAT, LOG_CALLER

ENVIRONMENT=production tightens validation: JWT_SECRET must be at least
32 bytes and AUDIT_HASH_KEY, when set, at least 32 bytes.

# Build Tags

NATS publishing is compiled in with -tags nats. Without the tag the
publisher is a stub: InitNATS warns if NATS_ENABLED is set and returns
nil components, and no NATS dependencies are linked into the binary.

	go build ./cmd/server                 # no NATS support
	go build -tags nats ./cmd/server      # embedded or external JetStream

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor tree then:

 1. stops the api layer, draining in-flight HTTP requests up to
    SHUTDOWN_TIMEOUT
 2. stops the messaging layer, flushing queued audit events
 3. stops the store layer sweepers
 4. reports any service that failed to stop in time

# Example Usage

Development with an in-memory everything:

	ADMIN_USERNAME=admin ADMIN_PASSWORD=changeme-now ADMIN_EMAIL=admin@example.com \
	  go run ./cmd/server

Production-shaped invocation:

	ENVIRONMENT=production \
	JWT_SECRET=$(openssl rand -hex 32) \
	AUDIT_HASH_KEY=$(openssl rand -hex 32) \
	STORE_DRIVER=postgres POSTGRES_DSN=postgres://aegis:...@db/aegis \
	SESSION_STORE=redis REDIS_ADDR=redis:6379 \
	AUDIT_DB_PATH=/data/aegis-audit.duckdb \
	  ./aegis-server

# See Also

  - internal/authz for the decision engines
  - internal/store for the persistence mirror
  - internal/audit for the hash-chained decision log
  - internal/supervisor for the tree construction
*/
package main
