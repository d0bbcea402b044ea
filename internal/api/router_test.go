// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/store"
	"github.com/tomtom215/aegis/internal/token"
)

const (
	testTokenSecret = "0123456789abcdef0123456789abcdef"
	testChainKey    = "fedcba9876543210fedcba9876543210"
	testPassword    = "correct horse battery staple"
)

var (
	hashOnce  sync.Once
	hashValue string
	hashErr   error
)

// testPasswordHash hashes the shared test password once; bcrypt at the
// production cost is too slow to repeat per test.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		hashValue, hashErr = identity.HashPassword(testPassword)
	})
	if hashErr != nil {
		t.Fatalf("hash test password: %v", hashErr)
	}
	return hashValue
}

// apiFixture wires the full stack behind an httptest-servable handler:
// in-memory persistence, live engines, token service and audit trail.
type apiFixture struct {
	cfg     *config.Config
	mirror  *store.Mirror
	tokens  *token.Service
	auditor *audit.Logger
	hub     *audit.StreamHub
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cfg := testConfig()
	return newAPIFixtureWithConfig(t, cfg)
}

func testConfig() *config.Config {
	return &config.Config{
		Authz: config.AuthzConfig{ExposeReasons: true},
		API: config.APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}
}

func newAPIFixtureWithConfig(t *testing.T, cfg *config.Config) *apiFixture {
	t.Helper()

	users := identity.NewRegistry()
	attrs := identity.NewAttributeRegistry()
	graph := authz.NewRoleGraph()
	policies := authz.NewPolicyStore()
	mirror := store.NewMirror(store.NewMemoryStore(), graph, policies, users, attrs)

	chainer, err := audit.NewChainer([]byte(testChainKey))
	if err != nil {
		t.Fatalf("NewChainer: %v", err)
	}
	auditStore := audit.NewMemoryStore(1000)
	auditor := audit.NewLogger(auditStore, chainer, audit.DefaultConfig())
	t.Cleanup(func() { auditor.Close() })

	evaluator := authz.NewEvaluator(graph, policies, auditor)
	resolver := identity.NewResolver(users)

	jwtm, err := token.NewManager(token.ManagerConfig{Secret: testTokenSecret})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	guard := token.NewLockoutGuard(token.LockoutConfig{
		Enabled:      true,
		MaxAttempts:  5,
		BaseDuration: 10 * time.Minute,
		MaxDuration:  time.Hour,
	})
	tokens := token.NewService(users, token.NewMemoryStore(), jwtm,
		token.NewMFAManager(users, "Aegis Test"), guard, auditor, token.ServiceConfig{})

	hub := audit.NewStreamHub(0, 0)

	router := NewRouter(RouterConfig{
		Config:      cfg,
		Mirror:      mirror,
		Evaluator:   evaluator,
		Resolver:    resolver,
		Tokens:      tokens,
		Audit:       auditor,
		Stream:      hub,
		Version:     "test",
		Development: true,
	})

	return &apiFixture{
		cfg:     cfg,
		mirror:  mirror,
		tokens:  tokens,
		auditor: auditor,
		hub:     hub,
		handler: router.Setup(),
	}
}

// seedUser creates an active user with the shared test password.
func (f *apiFixture) seedUser(t *testing.T, username string, roles ...string) identity.User {
	t.Helper()
	u, err := f.mirror.CreateUser(context.Background(), identity.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  testPasswordHash(t),
		Status:        identity.StatusActive,
		EmailVerified: true,
		Roles:         roles,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// seedAdmin creates the admin role with a wildcard iam permission and an
// active user holding it.
func (f *apiFixture) seedAdmin(t *testing.T, username string) identity.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.mirror.UpsertPermission(ctx, authz.Permission{
		ID: "iam-all", ResourceType: "iam", Action: "*", Scope: authz.ScopeAll,
	}); err != nil {
		t.Fatalf("seed iam permission: %v", err)
	}
	if err := f.mirror.UpsertRole(ctx, authz.Role{
		ID: "admin", Name: "Administrators", Permissions: []string{"iam-all"},
	}); err != nil {
		t.Fatalf("seed admin role: %v", err)
	}
	return f.seedUser(t, username, "admin")
}

// bearerFor logs the user in and returns a live access token.
func (f *apiFixture) bearerFor(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	res, err := f.tokens.Login(ctx, username, testPassword, "203.0.113.9", "test/1.0")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	pair, err := f.tokens.IssueTokens(ctx, res.Session.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return pair.AccessToken
}

// do runs one request through the full route tree.
func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// testEnvelope mirrors the response wrapper for assertions.
type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *struct {
		RequestID  string          `json:"request_id"`
		Pagination *PaginationMeta `json:"pagination"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, w.Body.String())
	}
	return env
}

// decodeData unmarshals the envelope's data payload into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) testEnvelope {
	t.Helper()
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
	return env
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if env.Success {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	if env.Error == nil || env.Error.Code != want {
		t.Fatalf("error code = %+v, want %s", env.Error, want)
	}
}

// =============================================================================
// Route Tree
// =============================================================================

func TestRouterUnknownRoute(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/nope", nil, "")

	assertStatus(t, w, http.StatusNotFound)
	assertErrorCode(t, w, ErrCodeNotFound)
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodDelete, "/api/v1/auth/login", nil, "")

	assertStatus(t, w, http.StatusMethodNotAllowed)
	assertErrorCode(t, w, ErrCodeBadRequest)
}

func TestRouterRequestIDHeader(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/health", nil, "")

	assertStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRouterRequestIDPropagated(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-fixed-123")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-fixed-123" {
		t.Errorf("X-Request-ID = %q, want req-fixed-123", got)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/metrics", nil, "")

	assertStatus(t, w, http.StatusOK)
	if !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("expected Prometheus exposition output")
	}
}

func TestRouterSwaggerDisabled(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/swagger/index.html", nil, "")

	assertStatus(t, w, http.StatusNotFound)
}

func TestRouterCORSPreflight(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Errorf("expected Access-Control-Allow-Origin on preflight, got none (status %d)", w.Code)
	}
}

func TestRouterFederationRoutesAbsentWithoutOIDC(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/auth/oidc/login", nil, "")

	assertStatus(t, w, http.StatusNotFound)
}

// =============================================================================
// Authentication & Authorization Gates
// =============================================================================

func TestRouterAdminRequiresAuthentication(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/admin/roles", nil, "")

	assertStatus(t, w, http.StatusUnauthorized)
	assertErrorCode(t, w, ErrCodeUnauthorized)
}

func TestRouterAdminRejectsGarbageToken(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/admin/roles", nil, "not-a-jwt")

	assertStatus(t, w, http.StatusUnauthorized)
}

func TestRouterAdminRequiresPermission(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedUser(t, "plain")
	bearer := f.bearerFor(t, "plain")

	w := f.do(t, http.MethodGet, "/api/v1/admin/roles", nil, bearer)

	assertStatus(t, w, http.StatusForbidden)
	assertErrorCode(t, w, ErrCodeForbidden)
}

func TestRouterAdminAllowsPermittedCaller(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedAdmin(t, "root")
	bearer := f.bearerFor(t, "root")

	w := f.do(t, http.MethodGet, "/api/v1/admin/roles", nil, bearer)

	assertStatus(t, w, http.StatusOK)
}

func TestRouterReadOnlyAdminCannotWrite(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	ctx := context.Background()

	// A role holding only roles.read must not pass the write gate.
	if _, err := f.mirror.UpsertPermission(ctx, authz.Permission{
		ID: "iam-roles-read", ResourceType: "iam", Action: "roles.read",
	}); err != nil {
		t.Fatalf("seed permission: %v", err)
	}
	if err := f.mirror.UpsertRole(ctx, authz.Role{
		ID: "auditor", Name: "Auditors", Permissions: []string{"iam-roles-read"},
	}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	f.seedUser(t, "reader", "auditor")
	bearer := f.bearerFor(t, "reader")

	if w := f.do(t, http.MethodGet, "/api/v1/admin/roles", nil, bearer); w.Code != http.StatusOK {
		t.Fatalf("read status = %d, want 200", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/v1/admin/roles",
		RoleRequest{ID: "ops", Name: "Operators"}, bearer)
	assertStatus(t, w, http.StatusForbidden)
}

func TestRouterAuditRequiresPermission(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedUser(t, "plain")
	bearer := f.bearerFor(t, "plain")

	w := f.do(t, http.MethodGet, "/api/v1/audit/events", nil, bearer)

	assertStatus(t, w, http.StatusForbidden)
}

func TestRouterCheckRequiresAuthentication(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/authz/check",
		CheckRequest{Action: "read", ResourceType: "document"}, "")

	assertStatus(t, w, http.StatusUnauthorized)
}

// =============================================================================
// Health
// =============================================================================

func TestHealthLive(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/health", nil, "")

	var status HealthStatus
	decodeData(t, w, &status)
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
	if status.Version != "test" {
		t.Errorf("version = %q, want test", status.Version)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.seedAdmin(t, "root")

	w := f.do(t, http.MethodGet, "/api/v1/health/ready", nil, "")

	var status ReadinessStatus
	decodeData(t, w, &status)
	if !status.Ready {
		t.Fatalf("ready = false: %+v", status)
	}
	if status.Components["store"] != "ok" {
		t.Errorf("store component = %q, want ok", status.Components["store"])
	}
	if status.RoleVersion == 0 {
		t.Error("expected a nonzero role version after seeding")
	}
}
