// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
)

// Mirror binds the in-memory engines to the durable store. All
// administrative mutations go through it: the engine applies first (it
// owns validation and version assignment), then the change is written
// through. On write-through failure the affected engine is reloaded from
// the store so memory matches the last persisted state again.
//
// Engine reads (evaluation, listing) go straight to the engines and
// never touch the store.
type Mirror struct {
	store      Store
	Graph      *authz.RoleGraph
	Policies   *authz.PolicyStore
	Users      *identity.Registry
	Attributes *identity.AttributeRegistry
}

// NewMirror binds engines to a backing store.
func NewMirror(s Store, graph *authz.RoleGraph, policies *authz.PolicyStore,
	users *identity.Registry, attrs *identity.AttributeRegistry) *Mirror {
	return &Mirror{
		store:      s,
		Graph:      graph,
		Policies:   policies,
		Users:      users,
		Attributes: attrs,
	}
}

// Load fetches all persisted state in parallel and publishes it into the
// engines, one replace per engine. Called once at startup before the API
// starts serving.
func (m *Mirror) Load(ctx context.Context) error {
	var (
		roles []authz.Role
		perms []authz.Permission
		pols  []authz.Policy
		users []identity.User
		defs  []identity.AttributeDefinition
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = m.store.LoadRoles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		perms, err = m.store.LoadPermissions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pols, err = m.store.LoadPolicies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = m.store.LoadUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		defs, err = m.store.LoadAttributeDefinitions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.Graph.Replace(roles, perms); err != nil {
		return err
	}
	if err := m.Policies.Replace(pols); err != nil {
		return err
	}
	m.Users.Replace(users)
	if err := m.applyDefinitions(defs); err != nil {
		return err
	}

	logging.Info().
		Int("roles", len(roles)).
		Int("permissions", len(perms)).
		Int("policies", len(pols)).
		Int("users", len(users)).
		Int("attribute_definitions", len(defs)).
		Msg("Persisted state loaded")
	return nil
}

// applyDefinitions replays custom attribute definitions into the
// registry. Builtins are already present and cannot be overwritten.
func (m *Mirror) applyDefinitions(defs []identity.AttributeDefinition) error {
	for _, d := range defs {
		if _, err := m.Attributes.Define(d.Path, d.KindName, d.Description); err != nil {
			return err
		}
	}
	return nil
}

// rollback reloads one engine from the store after a failed
// write-through. If the reload fails as well, the in-memory state stays
// ahead of the store until the next successful write or restart; that is
// logged, never silent.
func (m *Mirror) rollback(ctx context.Context, entity string, reload func(context.Context) error) {
	if err := reload(ctx); err != nil {
		logging.Error().Err(err).
			Str("entity", entity).
			Msg("Rollback reload failed; in-memory state ahead of store")
	}
}

func (m *Mirror) reloadGraph(ctx context.Context) error {
	roles, err := m.store.LoadRoles(ctx)
	if err != nil {
		return err
	}
	perms, err := m.store.LoadPermissions(ctx)
	if err != nil {
		return err
	}
	return m.Graph.Replace(roles, perms)
}

func (m *Mirror) reloadPolicies(ctx context.Context) error {
	pols, err := m.store.LoadPolicies(ctx)
	if err != nil {
		return err
	}
	return m.Policies.Replace(pols)
}

func (m *Mirror) reloadUsers(ctx context.Context) error {
	users, err := m.store.LoadUsers(ctx)
	if err != nil {
		return err
	}
	m.Users.Replace(users)
	return nil
}

// UpsertRole applies and persists a role.
func (m *Mirror) UpsertRole(ctx context.Context, role authz.Role) error {
	if err := m.Graph.UpsertRole(role); err != nil {
		return err
	}
	if err := m.store.SaveRole(ctx, role); err != nil {
		m.rollback(ctx, "roles", m.reloadGraph)
		return err
	}
	return nil
}

// DeleteRole removes a role everywhere.
func (m *Mirror) DeleteRole(ctx context.Context, id string) error {
	if err := m.Graph.RemoveRole(id); err != nil {
		return err
	}
	if err := m.store.DeleteRole(ctx, id); err != nil {
		m.rollback(ctx, "roles", m.reloadGraph)
		return err
	}
	return nil
}

// AddRoleParent adds an inheritance edge and persists the child role.
func (m *Mirror) AddRoleParent(ctx context.Context, childID, parentID string) error {
	if err := m.Graph.AddParent(childID, parentID); err != nil {
		return err
	}
	return m.persistRole(ctx, childID)
}

// RemoveRoleParent removes an inheritance edge and persists the child.
func (m *Mirror) RemoveRoleParent(ctx context.Context, childID, parentID string) error {
	if err := m.Graph.RemoveParent(childID, parentID); err != nil {
		return err
	}
	return m.persistRole(ctx, childID)
}

// GrantPermission attaches a permission to a role and persists the role.
func (m *Mirror) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	if err := m.Graph.GrantPermission(roleID, permissionID); err != nil {
		return err
	}
	return m.persistRole(ctx, roleID)
}

// RevokePermission detaches a permission and persists the role.
func (m *Mirror) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	if err := m.Graph.RevokePermission(roleID, permissionID); err != nil {
		return err
	}
	return m.persistRole(ctx, roleID)
}

func (m *Mirror) persistRole(ctx context.Context, id string) error {
	role, ok := m.Graph.Role(id)
	if !ok {
		return &authz.NotFoundError{Kind: "role", ID: id}
	}
	if err := m.store.SaveRole(ctx, role); err != nil {
		m.rollback(ctx, "roles", m.reloadGraph)
		return err
	}
	return nil
}

// UpsertPermission applies and persists a permission. The returned
// permission carries the engine-assigned version.
func (m *Mirror) UpsertPermission(ctx context.Context, p authz.Permission) (authz.Permission, error) {
	saved, err := m.Graph.UpsertPermission(p)
	if err != nil {
		return authz.Permission{}, err
	}
	if err := m.store.SavePermission(ctx, saved); err != nil {
		m.rollback(ctx, "permissions", m.reloadGraph)
		return authz.Permission{}, err
	}
	return saved, nil
}

// DeletePermission removes a permission everywhere.
func (m *Mirror) DeletePermission(ctx context.Context, id string) error {
	if err := m.Graph.RemovePermission(id); err != nil {
		return err
	}
	if err := m.store.DeletePermission(ctx, id); err != nil {
		m.rollback(ctx, "permissions", m.reloadGraph)
		return err
	}
	return nil
}

// UpsertPolicy applies and persists a policy revision. The returned
// policy carries the engine-assigned version and timestamps.
func (m *Mirror) UpsertPolicy(ctx context.Context, p authz.Policy) (authz.Policy, error) {
	saved, err := m.Policies.Upsert(p)
	if err != nil {
		return authz.Policy{}, err
	}
	if err := m.store.SavePolicy(ctx, saved); err != nil {
		m.rollback(ctx, "policies", m.reloadPolicies)
		return authz.Policy{}, err
	}
	return saved, nil
}

// DeletePolicy removes a policy and its history everywhere.
func (m *Mirror) DeletePolicy(ctx context.Context, id string) error {
	if err := m.Policies.Remove(id); err != nil {
		return err
	}
	if err := m.store.DeletePolicy(ctx, id); err != nil {
		m.rollback(ctx, "policies", m.reloadPolicies)
		return err
	}
	return nil
}

// SetPolicyActive toggles evaluation participation and persists the
// unchanged-version revision.
func (m *Mirror) SetPolicyActive(ctx context.Context, id string, active bool) (authz.Policy, error) {
	saved, err := m.Policies.SetActive(id, active)
	if err != nil {
		return authz.Policy{}, err
	}
	if err := m.store.SavePolicy(ctx, saved); err != nil {
		m.rollback(ctx, "policies", m.reloadPolicies)
		return authz.Policy{}, err
	}
	return saved, nil
}

// PolicyHistory returns prior revisions from the durable store, which
// holds the full history across restarts.
func (m *Mirror) PolicyHistory(ctx context.Context, id string) ([]authz.Policy, error) {
	return m.store.PolicyHistory(ctx, id)
}

// CreateUser applies and persists a new user.
func (m *Mirror) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	created, err := m.Users.Create(u)
	if err != nil {
		return identity.User{}, err
	}
	if err := m.store.SaveUser(ctx, created); err != nil {
		m.rollback(ctx, "users", m.reloadUsers)
		return identity.User{}, err
	}
	return created, nil
}

// UpdateUser applies a mutation and persists the result.
func (m *Mirror) UpdateUser(ctx context.Context, id string, mutate func(*identity.User) error) (identity.User, error) {
	updated, err := m.Users.Update(id, mutate)
	if err != nil {
		return identity.User{}, err
	}
	if err := m.store.SaveUser(ctx, updated); err != nil {
		m.rollback(ctx, "users", m.reloadUsers)
		return identity.User{}, err
	}
	return updated, nil
}

// SetUserStatus transitions a user's lifecycle status and persists it.
func (m *Mirror) SetUserStatus(ctx context.Context, id string, next identity.Status) (identity.User, error) {
	updated, err := m.Users.SetStatus(id, next)
	if err != nil {
		return identity.User{}, err
	}
	if err := m.store.SaveUser(ctx, updated); err != nil {
		m.rollback(ctx, "users", m.reloadUsers)
		return identity.User{}, err
	}
	return updated, nil
}

// PersistUser writes through a user the registry has already updated
// (login bookkeeping, MFA enrollment, verification flows). Persistence
// failure is logged but not fatal: auth state is reconstructible and
// must not fail the authentication path.
func (m *Mirror) PersistUser(ctx context.Context, u identity.User) {
	if err := m.store.SaveUser(ctx, u); err != nil {
		logging.Error().Err(err).Str("user_id", u.ID).Msg("User write-through failed")
	}
}

// DefineAttribute registers and persists a custom attribute definition.
func (m *Mirror) DefineAttribute(ctx context.Context, path, kindName, description string) (identity.AttributeDefinition, error) {
	def, err := m.Attributes.Define(path, kindName, description)
	if err != nil {
		return identity.AttributeDefinition{}, err
	}
	if err := m.store.SaveAttributeDefinition(ctx, def); err != nil {
		// No replace exists for the attribute registry; undo directly.
		_ = m.Attributes.Remove(path)
		return identity.AttributeDefinition{}, err
	}
	return def, nil
}

// RemoveAttribute deletes a custom definition everywhere.
func (m *Mirror) RemoveAttribute(ctx context.Context, path string) error {
	def, ok := m.Attributes.Lookup(path)
	if !ok {
		return &authz.NotFoundError{Kind: "attribute", ID: path}
	}
	if err := m.Attributes.Remove(path); err != nil {
		return err
	}
	if err := m.store.DeleteAttributeDefinition(ctx, path); err != nil {
		_, _ = m.Attributes.Define(def.Path, def.KindName, def.Description)
		return err
	}
	return nil
}

// Ping reports backend health for readiness checks.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
