// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// roleSnapshot is one immutable point-in-time view of the role graph.
// Readers load it atomically and never see partial writes.
type roleSnapshot struct {
	version     uint64
	roles       map[string]*Role
	permissions map[string]*Permission
}

// RoleGraph holds roles, permissions and inheritance edges. Reads are
// lock-free against the current snapshot; writes serialize behind mu and
// publish a new snapshot atomically.
type RoleGraph struct {
	mu   sync.Mutex
	snap atomic.Pointer[roleSnapshot]
}

// NewRoleGraph returns an empty role graph.
func NewRoleGraph() *RoleGraph {
	g := &RoleGraph{}
	g.snap.Store(&roleSnapshot{
		roles:       map[string]*Role{},
		permissions: map[string]*Permission{},
	})
	return g
}

// Version returns the current snapshot version.
func (g *RoleGraph) Version() uint64 {
	return g.snap.Load().version
}

// snapshot returns the current immutable view.
func (g *RoleGraph) snapshot() *roleSnapshot {
	return g.snap.Load()
}

// publish installs a new snapshot built from the given maps. Callers must
// hold mu and must not retain references to the maps afterwards.
func (g *RoleGraph) publish(roles map[string]*Role, permissions map[string]*Permission) {
	next := &roleSnapshot{
		version:     g.snap.Load().version + 1,
		roles:       roles,
		permissions: permissions,
	}
	g.snap.Store(next)
	metrics.SnapshotVersion.WithLabelValues("roles").Set(float64(next.version))
	metrics.SnapshotSwapsTotal.WithLabelValues("roles").Inc()
}

// copyRoles shallow-copies the role map; entries to be modified must be
// cloned by the caller before mutation.
func copyRoles(src map[string]*Role) map[string]*Role {
	dst := make(map[string]*Role, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyPermissions(src map[string]*Permission) map[string]*Permission {
	dst := make(map[string]*Permission, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// UpsertRole creates or replaces a role. Parent ids may reference roles
// that do not exist yet; read-side traversal skips them until they do.
// Edges that would close an inheritance cycle are rejected and the graph
// stays unchanged.
func (g *RoleGraph) UpsertRole(role Role) error {
	if strings.TrimSpace(role.ID) == "" {
		return NewValidationError("role.id", "must not be empty")
	}
	if strings.TrimSpace(role.Name) == "" {
		return NewValidationError("role.name", "must not be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	roles := copyRoles(cur.roles)
	roles[role.ID] = role.clone()
	for _, parent := range role.Parents {
		if parent == role.ID {
			return &CycleError{RoleID: role.ID, ParentID: parent, Path: []string{role.ID, role.ID}}
		}
		if path := cyclePath(roles, role.ID, parent); path != nil {
			return &CycleError{RoleID: role.ID, ParentID: parent, Path: path}
		}
	}
	g.publish(roles, cur.permissions)
	logging.Debug().Str("role_id", role.ID).Int("parents", len(role.Parents)).Msg("Role upserted")
	return nil
}

// RemoveRole deletes a role. Other roles keeping it as a parent are left
// untouched; their dangling edges are skipped during traversal.
func (g *RoleGraph) RemoveRole(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	if _, ok := cur.roles[id]; !ok {
		return &NotFoundError{Kind: "role", ID: id}
	}
	roles := copyRoles(cur.roles)
	delete(roles, id)
	g.publish(roles, cur.permissions)
	logging.Debug().Str("role_id", id).Msg("Role removed")
	return nil
}

// AddParent adds an inheritance edge from child to parent. Both roles
// must exist. The edge is rejected with a CycleError when following
// parent edges from parent would reach child again.
func (g *RoleGraph) AddParent(childID, parentID string) error {
	if childID == parentID {
		return &CycleError{RoleID: childID, ParentID: parentID, Path: []string{childID, childID}}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	child, ok := cur.roles[childID]
	if !ok {
		return &NotFoundError{Kind: "role", ID: childID}
	}
	if _, ok := cur.roles[parentID]; !ok {
		return &NotFoundError{Kind: "role", ID: parentID}
	}
	for _, p := range child.Parents {
		if p == parentID {
			return nil // edge already present
		}
	}
	if path := cyclePath(cur.roles, childID, parentID); path != nil {
		return &CycleError{RoleID: childID, ParentID: parentID, Path: path}
	}

	roles := copyRoles(cur.roles)
	next := child.clone()
	next.Parents = append(next.Parents, parentID)
	roles[childID] = next
	g.publish(roles, cur.permissions)
	logging.Debug().Str("role_id", childID).Str("parent_id", parentID).Msg("Role parent added")
	return nil
}

// RemoveParent drops an inheritance edge. Removing an edge that is not
// present is a no-op.
func (g *RoleGraph) RemoveParent(childID, parentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	child, ok := cur.roles[childID]
	if !ok {
		return &NotFoundError{Kind: "role", ID: childID}
	}
	idx := -1
	for i, p := range child.Parents {
		if p == parentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	roles := copyRoles(cur.roles)
	next := child.clone()
	next.Parents = append(next.Parents[:idx], next.Parents[idx+1:]...)
	roles[childID] = next
	g.publish(roles, cur.permissions)
	return nil
}

// cyclePath reports whether child is reachable from parent by following
// parent edges. It returns the cycle path child -> parent -> ... -> child
// when the edge would close a cycle, nil otherwise. Dangling edges end
// their branch of the search.
func cyclePath(roles map[string]*Role, childID, parentID string) []string {
	visited := map[string]bool{}
	var dfs func(id string, path []string) []string
	dfs = func(id string, path []string) []string {
		if id == childID {
			return append(path, id)
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		role, ok := roles[id]
		if !ok {
			return nil
		}
		for _, next := range role.Parents {
			if found := dfs(next, append(path, id)); found != nil {
				return found
			}
		}
		return nil
	}
	return dfs(parentID, []string{childID})
}

// UpsertPermission creates or updates a permission. The graph manages the
// version: a new permission starts at 1, an update increments it so
// recorded decision reasons keep pointing at the definition they saw.
func (g *RoleGraph) UpsertPermission(p Permission) (Permission, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Permission{}, NewValidationError("permission.id", "must not be empty")
	}
	if strings.TrimSpace(p.Action) == "" {
		return Permission{}, NewValidationError("permission.action", "must not be empty")
	}
	if strings.TrimSpace(p.ResourceType) == "" {
		return Permission{}, NewValidationError("permission.resource_type", "must not be empty")
	}
	switch p.Scope {
	case "", ScopeAll, ScopeOwn:
	default:
		return Permission{}, NewValidationError("permission.scope", "must be empty, \"all\" or \"own\"")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	if prev, ok := cur.permissions[p.ID]; ok {
		p.Version = prev.Version + 1
	} else {
		p.Version = 1
	}
	permissions := copyPermissions(cur.permissions)
	stored := p
	permissions[p.ID] = &stored
	g.publish(cur.roles, permissions)
	logging.Debug().Str("permission_id", p.ID).Int("version", p.Version).Msg("Permission upserted")
	return p, nil
}

// RemovePermission deletes a permission. Roles still granting it keep the
// dangling id; traversal skips it.
func (g *RoleGraph) RemovePermission(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	if _, ok := cur.permissions[id]; !ok {
		return &NotFoundError{Kind: "permission", ID: id}
	}
	permissions := copyPermissions(cur.permissions)
	delete(permissions, id)
	g.publish(cur.roles, permissions)
	return nil
}

// GrantPermission attaches a permission to a role. Both must exist.
func (g *RoleGraph) GrantPermission(roleID, permissionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	role, ok := cur.roles[roleID]
	if !ok {
		return &NotFoundError{Kind: "role", ID: roleID}
	}
	if _, ok := cur.permissions[permissionID]; !ok {
		return &NotFoundError{Kind: "permission", ID: permissionID}
	}
	for _, p := range role.Permissions {
		if p == permissionID {
			return nil
		}
	}
	roles := copyRoles(cur.roles)
	next := role.clone()
	next.Permissions = append(next.Permissions, permissionID)
	roles[roleID] = next
	g.publish(roles, cur.permissions)
	return nil
}

// RevokePermission detaches a permission from a role.
func (g *RoleGraph) RevokePermission(roleID, permissionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	role, ok := cur.roles[roleID]
	if !ok {
		return &NotFoundError{Kind: "role", ID: roleID}
	}
	idx := -1
	for i, p := range role.Permissions {
		if p == permissionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	roles := copyRoles(cur.roles)
	next := role.clone()
	next.Permissions = append(next.Permissions[:idx], next.Permissions[idx+1:]...)
	roles[roleID] = next
	g.publish(roles, cur.permissions)
	return nil
}

// Role returns a copy of one role.
func (g *RoleGraph) Role(id string) (Role, bool) {
	r, ok := g.snap.Load().roles[id]
	if !ok {
		return Role{}, false
	}
	return *r.clone(), true
}

// Permission returns a copy of one permission.
func (g *RoleGraph) Permission(id string) (Permission, bool) {
	p, ok := g.snap.Load().permissions[id]
	if !ok {
		return Permission{}, false
	}
	return *p, true
}

// ListRoles returns all roles sorted by id.
func (g *RoleGraph) ListRoles() []Role {
	snap := g.snap.Load()
	out := make([]Role, 0, len(snap.roles))
	for _, r := range snap.roles {
		out = append(out, *r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPermissions returns all permissions sorted by id.
func (g *RoleGraph) ListPermissions() []Permission {
	snap := g.snap.Load()
	out := make([]Permission, 0, len(snap.permissions))
	for _, p := range snap.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace swaps the entire graph contents in one publish. Used by the
// store loader at startup and by full re-syncs. Cycle edges anywhere in
// the incoming set are rejected as a whole.
func (g *RoleGraph) Replace(roles []Role, permissions []Permission) error {
	nextRoles := make(map[string]*Role, len(roles))
	for i := range roles {
		r := roles[i]
		if strings.TrimSpace(r.ID) == "" {
			return NewValidationError("role.id", "must not be empty")
		}
		nextRoles[r.ID] = r.clone()
	}
	for _, r := range nextRoles {
		for _, parent := range r.Parents {
			if parent == r.ID {
				return &CycleError{RoleID: r.ID, ParentID: parent, Path: []string{r.ID, r.ID}}
			}
			if path := cyclePath(nextRoles, r.ID, parent); path != nil {
				return &CycleError{RoleID: r.ID, ParentID: parent, Path: path}
			}
		}
	}
	nextPerms := make(map[string]*Permission, len(permissions))
	for i := range permissions {
		p := permissions[i]
		if p.Version < 1 {
			p.Version = 1
		}
		nextPerms[p.ID] = &p
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.publish(nextRoles, nextPerms)
	logging.Info().Int("roles", len(nextRoles)).Int("permissions", len(nextPerms)).Msg("Role graph replaced")
	return nil
}

// closure walks parent edges breadth-first from the given role ids and
// collects every permission granted along the way, deduplicated and
// sorted by id for deterministic reason chains. Dangling role and
// permission references are skipped and logged, never fatal.
func (s *roleSnapshot) closure(roleIDs []string, log *zerolog.Logger) []*Permission {
	seen := make(map[string]bool, len(roleIDs))
	perms := map[string]*Permission{}
	queue := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		role, ok := s.roles[id]
		if !ok {
			log.Warn().Str("role_id", id).Msg("Skipping dangling role reference")
			continue
		}
		for _, pid := range role.Permissions {
			if _, ok := perms[pid]; ok {
				continue
			}
			p, ok := s.permissions[pid]
			if !ok {
				log.Warn().Str("role_id", id).Str("permission_id", pid).Msg("Skipping dangling permission reference")
				continue
			}
			perms[pid] = p
		}
		for _, parent := range role.Parents {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	out := make([]*Permission, 0, len(perms))
	for _, p := range perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// direct resolves directly granted permission ids against the snapshot,
// skipping and logging dangling ids.
func (s *roleSnapshot) direct(ids []string, log *zerolog.Logger) []*Permission {
	out := make([]*Permission, 0, len(ids))
	for _, id := range ids {
		p, ok := s.permissions[id]
		if !ok {
			log.Warn().Str("permission_id", id).Msg("Skipping dangling direct permission")
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
