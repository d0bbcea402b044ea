// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
)

// seedDocumentReaders grants documents/read through a role and returns a
// user holding it.
func seedDocumentReaders(t *testing.T, f *apiFixture, username string) identity.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.mirror.UpsertPermission(ctx, authz.Permission{
		ID: "doc-read", ResourceType: "documents", Action: "read",
	}); err != nil {
		t.Fatalf("seed permission: %v", err)
	}
	if err := f.mirror.UpsertRole(ctx, authz.Role{
		ID: "readers", Name: "Readers", Permissions: []string{"doc-read"},
	}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	return f.seedUser(t, username, "readers")
}

// =============================================================================
// Self Checks
// =============================================================================

func TestCheckAllowViaRole(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	u := seedDocumentReaders(t, f, "reader")
	bearer := f.bearerFor(t, "reader")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{Action: "read", ResourceType: "documents", ResourceID: "doc-7"}, bearer)

	assertStatus(t, w, http.StatusOK)
	var resp CheckResponse
	decodeData(t, w, &resp)
	if !resp.Allowed {
		t.Fatalf("allowed = false: %+v", resp)
	}
	if resp.Source != authz.SourceRBAC {
		t.Errorf("source = %q, want rbac", resp.Source)
	}
	if resp.SubjectID != u.ID {
		t.Errorf("subject_id = %q, want the caller", resp.SubjectID)
	}
	if resp.DecisionID == "" || resp.RoleVersion == 0 {
		t.Errorf("missing decision metadata: %+v", resp)
	}
	if len(resp.Reasons) == 0 {
		t.Error("expected a reason chain with reasons exposed")
	}
}

func TestCheckDeniesByDefault(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	seedDocumentReaders(t, f, "reader")
	bearer := f.bearerFor(t, "reader")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{Action: "erase", ResourceType: "documents"}, bearer)

	var resp CheckResponse
	decodeData(t, w, &resp)
	if resp.Allowed {
		t.Fatal("ungranted action must deny")
	}
	if resp.Source != authz.SourceRBAC {
		t.Errorf("source = %q, want rbac", resp.Source)
	}
}

func TestCheckOwnScope(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()

	if _, err := f.mirror.UpsertPermission(ctx, authz.Permission{
		ID: "doc-edit-own", ResourceType: "documents", Action: "edit", Scope: authz.ScopeOwn,
	}); err != nil {
		t.Fatalf("seed permission: %v", err)
	}
	if err := f.mirror.UpsertRole(ctx, authz.Role{
		ID: "authors", Name: "Authors", Permissions: []string{"doc-edit-own"},
	}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	u := f.seedUser(t, "author", "authors")
	bearer := f.bearerFor(t, "author")

	mine := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:             "edit",
		ResourceType:       "documents",
		ResourceID:         "doc-1",
		ResourceAttributes: map[string]interface{}{"owner_id": u.ID},
	}, bearer)
	var resp CheckResponse
	decodeData(t, mine, &resp)
	if !resp.Allowed {
		t.Errorf("editing an owned resource should be allowed: %+v", resp.Reasons)
	}

	theirs := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:             "edit",
		ResourceType:       "documents",
		ResourceID:         "doc-2",
		ResourceAttributes: map[string]interface{}{"owner_id": "someone-else"},
	}, bearer)
	decodeData(t, theirs, &resp)
	if resp.Allowed {
		t.Error("own-scoped grant must not cover foreign resources")
	}
}

func TestCheckPolicyDenyOverridesRole(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()
	seedDocumentReaders(t, f, "reader")

	// The role allows, the department policy denies; deny wins.
	if _, err := f.mirror.UpsertPolicy(ctx, authz.Policy{
		ID:           "block-contractors",
		Name:         "Block contractors",
		Effect:       authz.EffectDeny,
		ResourceType: "documents",
		Rules: []authz.Rule{
			{Attribute: "subject.department", Operator: authz.OpEquals, Values: []string{"contractors"}},
		},
		Active: true,
	}); err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	if _, err := f.mirror.UpdateUser(ctx, mustUserID(t, f, "reader"), func(u *identity.User) error {
		u.Attributes = map[string]authz.Value{"department": authz.StringValue("contractors")}
		return nil
	}); err != nil {
		t.Fatalf("set department: %v", err)
	}
	bearer := f.bearerFor(t, "reader")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{Action: "read", ResourceType: "documents"}, bearer)

	var resp CheckResponse
	decodeData(t, w, &resp)
	if resp.Allowed {
		t.Fatal("deny policy must override the role grant")
	}
	if resp.Source != authz.SourcePolicyDeny {
		t.Errorf("source = %q, want policy_deny", resp.Source)
	}
}

func TestCheckEnvironmentAttributePolicy(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()
	seedDocumentReaders(t, f, "reader")

	if _, err := f.mirror.UpsertPolicy(ctx, authz.Policy{
		ID:           "no-public-channel",
		Name:         "No public channel",
		Effect:       authz.EffectDeny,
		ResourceType: "documents",
		Rules: []authz.Rule{
			{Attribute: "environment.channel", Operator: authz.OpEquals, Values: []string{"public"}},
		},
		Active: true,
	}); err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	bearer := f.bearerFor(t, "reader")

	blocked := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:                "read",
		ResourceType:          "documents",
		EnvironmentAttributes: map[string]interface{}{"channel": "public"},
	}, bearer)
	var resp CheckResponse
	decodeData(t, blocked, &resp)
	if resp.Allowed {
		t.Error("public channel should be denied")
	}

	internal := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:                "read",
		ResourceType:          "documents",
		EnvironmentAttributes: map[string]interface{}{"channel": "vpn"},
	}, bearer)
	decodeData(t, internal, &resp)
	if !resp.Allowed {
		t.Errorf("vpn channel should pass: %+v", resp.Reasons)
	}
}

// =============================================================================
// Simulation
// =============================================================================

func TestCheckSimulationRequiresPermission(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedUser(t, "plain")
	other := f.seedUser(t, "other")
	bearer := f.bearerFor(t, "plain")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{SubjectID: other.ID, Action: "read", ResourceType: "documents"}, bearer)

	assertStatus(t, w, http.StatusForbidden)
	assertErrorCode(t, w, ErrCodeForbidden)
}

func TestCheckSimulationForAnotherSubject(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedAdmin(t, "root")
	subject := seedDocumentReaders(t, f, "reader")
	bearer := f.bearerFor(t, "root")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{SubjectID: subject.ID, Action: "read", ResourceType: "documents"}, bearer)

	assertStatus(t, w, http.StatusOK)
	var resp CheckResponse
	decodeData(t, w, &resp)
	if !resp.Allowed {
		t.Errorf("simulated subject holds the role, expected allow: %+v", resp.Reasons)
	}
	if resp.SubjectID != subject.ID {
		t.Errorf("subject_id = %q, want the simulated subject", resp.SubjectID)
	}
}

func TestCheckSimulatedTrustOverride(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()
	f.seedAdmin(t, "root")
	subject := f.seedUser(t, "stepup")

	// Vault access is granted by policy only to MFA-trusted sessions.
	if _, err := f.mirror.UpsertPolicy(ctx, authz.Policy{
		ID:           "vault-mfa",
		Name:         "Vault requires MFA",
		Effect:       authz.EffectAllow,
		ResourceType: "vault",
		Rules: []authz.Rule{
			{Attribute: "subject.trust_level", Operator: authz.OpEquals, Values: []string{"mfa"}},
		},
		Active: true,
	}); err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	bearer := f.bearerFor(t, "root")

	elevated := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		SubjectID:    subject.ID,
		SubjectTrust: "mfa",
		Action:       "open",
		ResourceType: "vault",
	}, bearer)
	var resp CheckResponse
	decodeData(t, elevated, &resp)
	if !resp.Allowed || resp.Source != authz.SourcePolicyAllow {
		t.Errorf("mfa simulation: allowed=%v source=%q, want true/policy_allow", resp.Allowed, resp.Source)
	}

	// Without the override a simulated subject carries password trust.
	baseline := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		SubjectID:    subject.ID,
		Action:       "open",
		ResourceType: "vault",
	}, bearer)
	decodeData(t, baseline, &resp)
	if resp.Allowed {
		t.Error("password-trust simulation must not satisfy the MFA policy")
	}
}

func TestCheckSimulatedInactiveSubject(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()
	f.seedAdmin(t, "root")
	ghost := f.seedUser(t, "departed")
	if _, err := f.mirror.SetUserStatus(ctx, ghost.ID, identity.StatusInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	bearer := f.bearerFor(t, "root")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{SubjectID: ghost.ID, Action: "read", ResourceType: "documents"}, bearer)

	assertStatus(t, w, http.StatusBadRequest)
	assertErrorCode(t, w, ErrCodeValidationError)
}

// =============================================================================
// Attribute Handling
// =============================================================================

func TestCheckDeclaredResourceAttribute(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedAdmin(t, "root")
	bearer := f.bearerFor(t, "root")

	w := f.do(t, http.MethodPost, "/api/v1/admin/attributes",
		AttributeDefinitionRequest{Path: "resource.confidential", Kind: "bool"}, bearer)
	assertStatus(t, w, http.StatusCreated)

	ok := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:             "read",
		ResourceType:       "documents",
		ResourceAttributes: map[string]interface{}{"confidential": true},
	}, bearer)
	assertStatus(t, ok, http.StatusOK)

	bad := f.do(t, http.MethodPost, "/api/v1/authz/check", CheckRequest{
		Action:             "read",
		ResourceType:       "documents",
		ResourceAttributes: map[string]interface{}{"confidential": "maybe"},
	}, bearer)
	assertStatus(t, bad, http.StatusBadRequest)
	assertErrorCode(t, bad, ErrCodeValidationError)
}

func TestCheckReasonsSuppressed(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Authz.ExposeReasons = false
	f := newAPIFixtureWithConfig(t, cfg)
	seedDocumentReaders(t, f, "reader")
	bearer := f.bearerFor(t, "reader")

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{Action: "read", ResourceType: "documents"}, bearer)

	var resp CheckResponse
	decodeData(t, w, &resp)
	if !resp.Allowed {
		t.Fatalf("allowed = false: %+v", resp)
	}
	if len(resp.Reasons) != 0 {
		t.Error("reason chain must be withheld when not exposed")
	}
	if strings.Contains(w.Body.String(), "\"reasons\"") {
		t.Error("reasons key should be omitted entirely")
	}
}

func TestCheckValidation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedUser(t, "plain")
	bearer := f.bearerFor(t, "plain")

	tests := []struct {
		name string
		req  CheckRequest
	}{
		{"missing action", CheckRequest{ResourceType: "documents"}},
		{"missing resource type", CheckRequest{Action: "read"}},
		{"unknown trust level", CheckRequest{Action: "read", ResourceType: "documents", SubjectTrust: "extreme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/authz/check", tt.req, bearer)
			assertStatus(t, w, http.StatusBadRequest)
			assertErrorCode(t, w, ErrCodeValidationError)
		})
	}
}

// mustUserID resolves a username to its id.
func mustUserID(t *testing.T, f *apiFixture, username string) string {
	t.Helper()
	u, err := f.mirror.Users.ByUsername(username)
	if err != nil {
		t.Fatalf("ByUsername(%s): %v", username, err)
	}
	return u.ID
}
