// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
)

// PoolConfig holds pgx pool settings.
type PoolConfig struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	ConnTimeout time.Duration
}

// NewPool creates a PostgreSQL connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.ConnTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.ConnTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("store: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return pool, nil
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS aegis_roles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    permissions JSONB NOT NULL DEFAULT '[]',
    parents JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS aegis_permissions (
    id TEXT PRIMARY KEY,
    resource_type TEXT NOT NULL,
    action TEXT NOT NULL,
    scope TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS aegis_policies (
    id TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    active BOOLEAN NOT NULL,
    doc JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS aegis_policy_history (
    id TEXT NOT NULL,
    version INTEGER NOT NULL,
    doc JSONB NOT NULL,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (id, version)
);

CREATE TABLE IF NOT EXISTS aegis_users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    roles JSONB NOT NULL DEFAULT '[]',
    permissions JSONB NOT NULL DEFAULT '[]',
    attributes JSONB NOT NULL DEFAULT '{}',
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    totp_secret TEXT NOT NULL DEFAULT '',
    backup_code_hashes JSONB NOT NULL DEFAULT '[]',
    token_version INTEGER NOT NULL DEFAULT 0,
    external_issuer TEXT NOT NULL DEFAULT '',
    external_subject TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    last_login_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_aegis_users_external ON aegis_users (external_issuer, external_subject);

CREATE TABLE IF NOT EXISTS aegis_attribute_definitions (
    path TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
)`

// CreateSchema creates all tables and indexes if they do not exist.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(postgresSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	logging.Debug().Msg("Postgres schema ensured")
	return nil
}

// LoadRoles returns all roles ordered by id.
func (s *PostgresStore) LoadRoles(ctx context.Context) ([]authz.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, permissions, parents FROM aegis_roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load roles: %w", err)
	}
	defer rows.Close()

	var out []authz.Role
	for rows.Next() {
		var (
			role              authz.Role
			perms, parentsDoc []byte
		)
		if err := rows.Scan(&role.ID, &role.Name, &perms, &parentsDoc); err != nil {
			return nil, fmt.Errorf("store: scan role: %w", err)
		}
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return nil, fmt.Errorf("store: role %s permissions: %w", role.ID, err)
		}
		if err := json.Unmarshal(parentsDoc, &role.Parents); err != nil {
			return nil, fmt.Errorf("store: role %s parents: %w", role.ID, err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// LoadPermissions returns all permissions ordered by id.
func (s *PostgresStore) LoadPermissions(ctx context.Context) ([]authz.Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, resource_type, action, scope, version FROM aegis_permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load permissions: %w", err)
	}
	defer rows.Close()

	var out []authz.Permission
	for rows.Next() {
		var (
			p     authz.Permission
			scope string
		)
		if err := rows.Scan(&p.ID, &p.ResourceType, &p.Action, &scope, &p.Version); err != nil {
			return nil, fmt.Errorf("store: scan permission: %w", err)
		}
		p.Scope = authz.ScopeQualifier(scope)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadPolicies returns the current revision of every policy ordered by id.
func (s *PostgresStore) LoadPolicies(ctx context.Context) ([]authz.Policy, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM aegis_policies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load policies: %w", err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan policy: %w", err)
		}
		var p authz.Policy
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("store: decode policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadUsers returns all users ordered by id.
func (s *PostgresStore) LoadUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username, email, password_hash, status, roles, permissions,
		attributes, email_verified, mfa_enabled, totp_secret, backup_code_hashes, token_version,
		external_issuer, external_subject, created_at, updated_at, last_login_at
		FROM aegis_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load users: %w", err)
	}
	defer rows.Close()

	var out []identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(rows pgx.Rows) (identity.User, error) {
	var (
		u                        identity.User
		status                   string
		roles, perms, attrs, bch []byte
	)
	err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &status, &roles, &perms,
		&attrs, &u.EmailVerified, &u.MFAEnabled, &u.TOTPSecret, &bch, &u.TokenVersion,
		&u.ExternalIssuer, &u.ExternalSubject, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return identity.User{}, fmt.Errorf("store: scan user: %w", err)
	}
	u.Status = identity.Status(status)

	if err := json.Unmarshal(roles, &u.Roles); err != nil {
		return identity.User{}, fmt.Errorf("store: user %s roles: %w", u.ID, err)
	}
	if err := json.Unmarshal(perms, &u.Permissions); err != nil {
		return identity.User{}, fmt.Errorf("store: user %s permissions: %w", u.ID, err)
	}
	if err := json.Unmarshal(bch, &u.BackupCodeHashes); err != nil {
		return identity.User{}, fmt.Errorf("store: user %s backup codes: %w", u.ID, err)
	}

	var stored map[string]storedValue
	if err := json.Unmarshal(attrs, &stored); err != nil {
		return identity.User{}, fmt.Errorf("store: user %s attributes: %w", u.ID, err)
	}
	u.Attributes, err = decodeAttributes(stored)
	if err != nil {
		return identity.User{}, fmt.Errorf("store: user %s: %w", u.ID, err)
	}

	return u, nil
}

// LoadAttributeDefinitions returns all custom definitions ordered by path.
func (s *PostgresStore) LoadAttributeDefinitions(ctx context.Context) ([]identity.AttributeDefinition, error) {
	rows, err := s.pool.Query(ctx, `SELECT path, kind, description FROM aegis_attribute_definitions ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("store: load attribute definitions: %w", err)
	}
	defer rows.Close()

	var out []identity.AttributeDefinition
	for rows.Next() {
		var def identity.AttributeDefinition
		if err := rows.Scan(&def.Path, &def.KindName, &def.Description); err != nil {
			return nil, fmt.Errorf("store: scan attribute definition: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

// SaveRole upserts a role.
func (s *PostgresStore) SaveRole(ctx context.Context, role authz.Role) error {
	perms, err := json.Marshal(emptyIfNil(role.Permissions))
	if err != nil {
		return fmt.Errorf("store: encode role permissions: %w", err)
	}
	parentsDoc, err := json.Marshal(emptyIfNil(role.Parents))
	if err != nil {
		return fmt.Errorf("store: encode role parents: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO aegis_roles (id, name, permissions, parents, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET name = $2, permissions = $3, parents = $4, updated_at = NOW()`,
		role.ID, role.Name, perms, parentsDoc)
	if err != nil {
		return fmt.Errorf("store: save role %s: %w", role.ID, err)
	}
	return nil
}

// DeleteRole removes a role. Deleting an absent role is not an error.
func (s *PostgresStore) DeleteRole(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM aegis_roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete role %s: %w", id, err)
	}
	return nil
}

// SavePermission upserts a permission.
func (s *PostgresStore) SavePermission(ctx context.Context, p authz.Permission) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO aegis_permissions (id, resource_type, action, scope, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET resource_type = $2, action = $3, scope = $4, version = $5, updated_at = NOW()`,
		p.ID, p.ResourceType, p.Action, string(p.Scope), p.Version)
	if err != nil {
		return fmt.Errorf("store: save permission %s: %w", p.ID, err)
	}
	return nil
}

// DeletePermission removes a permission.
func (s *PostgresStore) DeletePermission(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM aegis_permissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete permission %s: %w", id, err)
	}
	return nil
}

// SavePolicy upserts the current revision and records it in the history
// table in one transaction.
func (s *PostgresStore) SavePolicy(ctx context.Context, p authz.Policy) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode policy: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: save policy %s: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO aegis_policies (id, version, active, doc, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET version = $2, active = $3, doc = $4, updated_at = NOW()`,
		p.ID, p.Version, p.Active, doc)
	if err != nil {
		return fmt.Errorf("store: save policy %s: %w", p.ID, err)
	}

	// Content revisions are immutable once recorded; an active toggle
	// re-saves the same version and must not rewrite it.
	_, err = tx.Exec(ctx, `INSERT INTO aegis_policy_history (id, version, doc)
		VALUES ($1, $2, $3) ON CONFLICT (id, version) DO NOTHING`,
		p.ID, p.Version, doc)
	if err != nil {
		return fmt.Errorf("store: save policy history %s: %w", p.ID, err)
	}

	return tx.Commit(ctx)
}

// DeletePolicy removes a policy and its revision history.
func (s *PostgresStore) DeletePolicy(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: delete policy %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM aegis_policy_history WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete policy history %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM aegis_policies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete policy %s: %w", id, err)
	}

	return tx.Commit(ctx)
}

// PolicyHistory returns prior revisions, oldest first.
func (s *PostgresStore) PolicyHistory(ctx context.Context, id string) ([]authz.Policy, error) {
	var current int
	err := s.pool.QueryRow(ctx, `SELECT version FROM aegis_policies WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &authz.NotFoundError{Kind: "policy", ID: id}
		}
		return nil, fmt.Errorf("store: policy history %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `SELECT doc FROM aegis_policy_history
		WHERE id = $1 AND version < $2 ORDER BY version`, id, current)
	if err != nil {
		return nil, fmt.Errorf("store: policy history %s: %w", id, err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan policy revision: %w", err)
		}
		var p authz.Policy
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("store: decode policy revision: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveUser upserts a user.
func (s *PostgresStore) SaveUser(ctx context.Context, u identity.User) error {
	roles, err := json.Marshal(emptyIfNil(u.Roles))
	if err != nil {
		return fmt.Errorf("store: encode user roles: %w", err)
	}
	perms, err := json.Marshal(emptyIfNil(u.Permissions))
	if err != nil {
		return fmt.Errorf("store: encode user permissions: %w", err)
	}
	bch, err := json.Marshal(emptyIfNil(u.BackupCodeHashes))
	if err != nil {
		return fmt.Errorf("store: encode user backup codes: %w", err)
	}
	attrs, err := json.Marshal(encodeAttributes(u.Attributes))
	if err != nil {
		return fmt.Errorf("store: encode user attributes: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO aegis_users (id, username, email, password_hash, status,
		roles, permissions, attributes, email_verified, mfa_enabled, totp_secret, backup_code_hashes,
		token_version, external_issuer, external_subject, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET username = $2, email = $3, password_hash = $4, status = $5,
		roles = $6, permissions = $7, attributes = $8, email_verified = $9, mfa_enabled = $10,
		totp_secret = $11, backup_code_hashes = $12, token_version = $13, external_issuer = $14,
		external_subject = $15, updated_at = $17, last_login_at = $18`,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Status),
		roles, perms, attrs, u.EmailVerified, u.MFAEnabled, u.TOTPSecret, bch,
		u.TokenVersion, u.ExternalIssuer, u.ExternalSubject, u.CreatedAt, u.UpdatedAt, u.LastLoginAt)
	if err != nil {
		return fmt.Errorf("store: save user %s: %w", u.ID, err)
	}
	return nil
}

// SaveAttributeDefinition upserts a custom attribute definition.
func (s *PostgresStore) SaveAttributeDefinition(ctx context.Context, def identity.AttributeDefinition) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO aegis_attribute_definitions (path, kind, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET kind = $2, description = $3`,
		def.Path, def.KindName, def.Description)
	if err != nil {
		return fmt.Errorf("store: save attribute definition %s: %w", def.Path, err)
	}
	return nil
}

// DeleteAttributeDefinition removes a definition.
func (s *PostgresStore) DeleteAttributeDefinition(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM aegis_attribute_definitions WHERE path = $1`, path); err != nil {
		return fmt.Errorf("store: delete attribute definition %s: %w", path, err)
	}
	return nil
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// emptyIfNil keeps JSONB columns as [] rather than null.
func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
