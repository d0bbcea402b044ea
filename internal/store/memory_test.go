// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
)

func TestMemoryStore_RoleRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	admin := authz.Role{ID: "admin", Name: "Administrator", Permissions: []string{"doc-read", "doc-write"}}
	viewer := authz.Role{ID: "viewer", Name: "Viewer", Parents: []string{"admin"}}
	if err := s.SaveRole(ctx, admin); err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}
	if err := s.SaveRole(ctx, viewer); err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}

	roles, err := s.LoadRoles(ctx)
	if err != nil {
		t.Fatalf("LoadRoles() error = %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("got %d roles, want 2", len(roles))
	}
	if roles[0].ID != "admin" || roles[1].ID != "viewer" {
		t.Errorf("load order = %s, %s, want admin, viewer", roles[0].ID, roles[1].ID)
	}
	if len(roles[0].Permissions) != 2 {
		t.Errorf("admin permissions = %v", roles[0].Permissions)
	}

	// The returned slices must be copies, not aliases of stored state.
	roles[0].Permissions[0] = "tampered"
	reloaded, _ := s.LoadRoles(ctx)
	if reloaded[0].Permissions[0] != "doc-read" {
		t.Error("mutating a loaded role leaked into the store")
	}

	if err := s.DeleteRole(ctx, "viewer"); err != nil {
		t.Fatalf("DeleteRole() error = %v", err)
	}
	roles, _ = s.LoadRoles(ctx)
	if len(roles) != 1 {
		t.Errorf("got %d roles after delete, want 1", len(roles))
	}

	if err := s.DeleteRole(ctx, "absent"); err != nil {
		t.Errorf("deleting an absent role should not error, got %v", err)
	}
}

func TestMemoryStore_PermissionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	perms := []authz.Permission{
		{ID: "doc-write", ResourceType: "document", Action: "write", Version: 2},
		{ID: "doc-read", ResourceType: "document", Action: "read", Scope: authz.ScopeOwn, Version: 1},
	}
	for _, p := range perms {
		if err := s.SavePermission(ctx, p); err != nil {
			t.Fatalf("SavePermission(%s) error = %v", p.ID, err)
		}
	}

	loaded, err := s.LoadPermissions(ctx)
	if err != nil {
		t.Fatalf("LoadPermissions() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d permissions, want 2", len(loaded))
	}
	if loaded[0].ID != "doc-read" || loaded[1].ID != "doc-write" {
		t.Errorf("load order = %s, %s, want doc-read, doc-write", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].Scope != authz.ScopeOwn {
		t.Errorf("Scope = %q, want %q", loaded[0].Scope, authz.ScopeOwn)
	}

	if err := s.DeletePermission(ctx, "doc-read"); err != nil {
		t.Fatalf("DeletePermission() error = %v", err)
	}
	loaded, _ = s.LoadPermissions(ctx)
	if len(loaded) != 1 || loaded[0].ID != "doc-write" {
		t.Errorf("after delete got %v", loaded)
	}
}

func TestMemoryStore_PolicyHistory(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := authz.Policy{
		ID:           "after-hours",
		Name:         "After hours lockdown",
		Effect:       authz.EffectDeny,
		ResourceType: "document",
		Priority:     10,
		Active:       true,
	}
	for v := 1; v <= 3; v++ {
		p := base
		p.Version = v
		if err := s.SavePolicy(ctx, p); err != nil {
			t.Fatalf("SavePolicy(v%d) error = %v", v, err)
		}
	}

	current, err := s.LoadPolicies(ctx)
	if err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}
	if len(current) != 1 || current[0].Version != 3 {
		t.Fatalf("current = %+v, want single policy at version 3", current)
	}

	hist, err := s.PolicyHistory(ctx, "after-hours")
	if err != nil {
		t.Fatalf("PolicyHistory() error = %v", err)
	}
	if len(hist) != 2 || hist[0].Version != 1 || hist[1].Version != 2 {
		t.Fatalf("history versions = %v, want [1 2]", policyVersions(hist))
	}

	// Re-saving the current version (an active toggle) must not grow
	// the history.
	toggled := base
	toggled.Version = 3
	toggled.Active = false
	if err := s.SavePolicy(ctx, toggled); err != nil {
		t.Fatalf("SavePolicy(toggle) error = %v", err)
	}
	hist, _ = s.PolicyHistory(ctx, "after-hours")
	if len(hist) != 2 {
		t.Errorf("history grew to %d entries after re-saving version 3", len(hist))
	}

	if _, err := s.PolicyHistory(ctx, "missing"); !authz.IsNotFound(err) {
		t.Errorf("PolicyHistory(missing) error = %v, want not found", err)
	}

	if err := s.DeletePolicy(ctx, "after-hours"); err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if _, err := s.PolicyHistory(ctx, "after-hours"); !authz.IsNotFound(err) {
		t.Errorf("history should be gone after delete, got %v", err)
	}
}

func policyVersions(pols []authz.Policy) []int {
	out := make([]int, len(pols))
	for i, p := range pols {
		out[i] = p.Version
	}
	return out
}

func TestMemoryStore_UserRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := identity.User{
		ID:           "u-1",
		Username:     "freya",
		Email:        "freya@example.com",
		PasswordHash: "$argon2id$fake",
		Status:       identity.StatusActive,
		Roles:        []string{"viewer"},
		Attributes: map[string]authz.Value{
			"department": authz.StringValue("engineering"),
			"office_ip":  authz.IPValue(netip.MustParseAddr("10.0.0.7")),
		},
		TokenVersion: 4,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}

	users, err := s.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("LoadUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	got := users[0]
	if got.Username != "freya" || got.TokenVersion != 4 {
		t.Errorf("user = %+v", got)
	}
	if got.Attributes["department"].Str != "engineering" {
		t.Errorf("department = %v", got.Attributes["department"])
	}

	got.Attributes["department"] = authz.StringValue("tampered")
	reloaded, _ := s.LoadUsers(ctx)
	if reloaded[0].Attributes["department"].Str != "engineering" {
		t.Error("mutating a loaded user's attributes leaked into the store")
	}
}

func TestMemoryStore_AttributeDefinitionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	defs := []identity.AttributeDefinition{
		{Path: "subject.department", Kind: authz.KindString, KindName: "string", Description: "org unit"},
		{Path: "environment.office_hours", Kind: authz.KindBool, KindName: "bool"},
	}
	for _, d := range defs {
		if err := s.SaveAttributeDefinition(ctx, d); err != nil {
			t.Fatalf("SaveAttributeDefinition(%s) error = %v", d.Path, err)
		}
	}

	loaded, err := s.LoadAttributeDefinitions(ctx)
	if err != nil {
		t.Fatalf("LoadAttributeDefinitions() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d definitions, want 2", len(loaded))
	}
	if loaded[0].Path != "environment.office_hours" || loaded[1].Path != "subject.department" {
		t.Errorf("load order = %s, %s", loaded[0].Path, loaded[1].Path)
	}

	if err := s.DeleteAttributeDefinition(ctx, "subject.department"); err != nil {
		t.Fatalf("DeleteAttributeDefinition() error = %v", err)
	}
	loaded, _ = s.LoadAttributeDefinitions(ctx)
	if len(loaded) != 1 {
		t.Errorf("got %d definitions after delete, want 1", len(loaded))
	}
}

func TestMemoryStore_EmptyLoads(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if roles, err := s.LoadRoles(ctx); err != nil || len(roles) != 0 {
		t.Errorf("LoadRoles() = %v, %v", roles, err)
	}
	if pols, err := s.LoadPolicies(ctx); err != nil || len(pols) != 0 {
		t.Errorf("LoadPolicies() = %v, %v", pols, err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
