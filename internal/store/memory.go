// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
)

// MemoryStore implements Store with in-process maps. Suitable for
// development and tests; data is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	roles       map[string]authz.Role
	permissions map[string]authz.Permission
	policies    map[string]authz.Policy
	history     map[string][]authz.Policy
	users       map[string]identity.User
	attributes  map[string]identity.AttributeDefinition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:       make(map[string]authz.Role),
		permissions: make(map[string]authz.Permission),
		policies:    make(map[string]authz.Policy),
		history:     make(map[string][]authz.Policy),
		users:       make(map[string]identity.User),
		attributes:  make(map[string]identity.AttributeDefinition),
	}
}

func copyRole(r authz.Role) authz.Role {
	r.Permissions = append([]string(nil), r.Permissions...)
	r.Parents = append([]string(nil), r.Parents...)
	return r
}

func copyRules(rules []authz.Rule) []authz.Rule {
	if rules == nil {
		return nil
	}
	out := make([]authz.Rule, len(rules))
	for i, r := range rules {
		r.Values = append([]string(nil), r.Values...)
		out[i] = r
	}
	return out
}

func copyPolicy(p authz.Policy) authz.Policy {
	p.Rules = copyRules(p.Rules)
	if p.Groups != nil {
		groups := make([]authz.RuleGroup, len(p.Groups))
		for i, g := range p.Groups {
			g.Rules = copyRules(g.Rules)
			groups[i] = g
		}
		p.Groups = groups
	}
	return p
}

func copyUser(u identity.User) identity.User {
	u.Roles = append([]string(nil), u.Roles...)
	u.Permissions = append([]string(nil), u.Permissions...)
	u.BackupCodeHashes = append([]string(nil), u.BackupCodeHashes...)
	if u.Attributes != nil {
		attrs := make(map[string]authz.Value, len(u.Attributes))
		for k, v := range u.Attributes {
			attrs[k] = v
		}
		u.Attributes = attrs
	}
	return u
}

// LoadRoles returns all roles sorted by id.
func (s *MemoryStore) LoadRoles(ctx context.Context) ([]authz.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]authz.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, copyRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadPermissions returns all permissions sorted by id.
func (s *MemoryStore) LoadPermissions(ctx context.Context) ([]authz.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]authz.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadPolicies returns the current revision of every policy sorted by id.
func (s *MemoryStore) LoadPolicies(ctx context.Context) ([]authz.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]authz.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, copyPolicy(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadUsers returns all users sorted by id.
func (s *MemoryStore) LoadUsers(ctx context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadAttributeDefinitions returns all custom definitions sorted by path.
func (s *MemoryStore) LoadAttributeDefinitions(ctx context.Context) ([]identity.AttributeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.AttributeDefinition, 0, len(s.attributes))
	for _, d := range s.attributes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SaveRole upserts a role.
func (s *MemoryStore) SaveRole(ctx context.Context, role authz.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = copyRole(role)
	return nil
}

// DeleteRole removes a role. Deleting an absent role is not an error.
func (s *MemoryStore) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, id)
	return nil
}

// SavePermission upserts a permission.
func (s *MemoryStore) SavePermission(ctx context.Context, p authz.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[p.ID] = p
	return nil
}

// DeletePermission removes a permission.
func (s *MemoryStore) DeletePermission(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, id)
	return nil
}

// SavePolicy upserts the current revision and appends it to the history
// unless that version is already recorded.
func (s *MemoryStore) SavePolicy(ctx context.Context, p authz.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[p.ID] = copyPolicy(p)

	for _, rev := range s.history[p.ID] {
		if rev.Version == p.Version {
			return nil
		}
	}
	s.history[p.ID] = append(s.history[p.ID], copyPolicy(p))
	return nil
}

// DeletePolicy removes a policy and its revision history.
func (s *MemoryStore) DeletePolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, id)
	delete(s.history, id)
	return nil
}

// PolicyHistory returns prior revisions, oldest first.
func (s *MemoryStore) PolicyHistory(ctx context.Context, id string) ([]authz.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.policies[id]
	if !ok {
		return nil, &authz.NotFoundError{Kind: "policy", ID: id}
	}

	revs := s.history[id]
	out := make([]authz.Policy, 0, len(revs))
	for _, rev := range revs {
		if rev.Version < cur.Version {
			out = append(out, copyPolicy(rev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// SaveUser upserts a user.
func (s *MemoryStore) SaveUser(ctx context.Context, u identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = copyUser(u)
	return nil
}

// SaveAttributeDefinition upserts a custom attribute definition.
func (s *MemoryStore) SaveAttributeDefinition(ctx context.Context, def identity.AttributeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes[def.Path] = def
	return nil
}

// DeleteAttributeDefinition removes a definition.
func (s *MemoryStore) DeleteAttributeDefinition(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attributes, path)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
