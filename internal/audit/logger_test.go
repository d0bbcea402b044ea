// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/token"
)

func TestLogger_Log(t *testing.T) {
	store := NewMemoryStore(100)
	config := &Config{
		Enabled:     true,
		LogLevel:    SeverityInfo,
		LogToStdout: false,
		BufferSize:  10,
	}
	logger := NewLogger(store, newTestChainer(t), config)
	defer logger.Close()

	event := &Event{
		Type:        EventTypeLogin,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: "user1", Type: "user", Name: "testuser"},
		Source:      Source{IPAddress: "192.168.1.1"},
		Action:      "login",
		Description: "User logged in successfully",
	}

	logger.Log(event)

	// Wait for async write
	time.Sleep(100 * time.Millisecond)

	if store.Len() != 1 {
		t.Errorf("expected 1 event in store, got %d", store.Len())
	}

	ctx := context.Background()
	events, err := store.Query(ctx, QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Type != EventTypeLogin {
		t.Errorf("expected type %s, got %s", EventTypeLogin, events[0].Type)
	}
	if events[0].Seq != 1 {
		t.Errorf("expected seq 1, got %d", events[0].Seq)
	}
	if events[0].Hash == "" {
		t.Error("expected event to be sealed")
	}
}

func TestLogger_Disabled(t *testing.T) {
	store := NewMemoryStore(100)
	config := &Config{
		Enabled:    false,
		LogLevel:   SeverityInfo,
		BufferSize: 10,
	}
	logger := NewLogger(store, newTestChainer(t), config)
	defer logger.Close()

	logger.Log(&Event{
		Type:     EventTypeLogin,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
	})

	time.Sleep(100 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("expected 0 events when disabled, got %d", store.Len())
	}
}

func TestLogger_SeverityFiltering(t *testing.T) {
	store := NewMemoryStore(100)
	config := &Config{
		Enabled:    true,
		LogLevel:   SeverityWarning,
		BufferSize: 10,
	}
	logger := NewLogger(store, newTestChainer(t), config)
	defer logger.Close()

	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityWarning, Outcome: OutcomeFailure})
	logger.Log(&Event{Type: EventTypeReuseDetected, Severity: SeverityCritical, Outcome: OutcomeFailure})

	time.Sleep(100 * time.Millisecond)

	if store.Len() != 2 {
		t.Errorf("expected 2 events at warning level, got %d", store.Len())
	}
}

func TestLogger_DebugFiltering(t *testing.T) {
	store := NewMemoryStore(100)
	config := &Config{
		Enabled:      true,
		LogLevel:     SeverityDebug,
		BufferSize:   10,
		IncludeDebug: false,
	}
	logger := NewLogger(store, newTestChainer(t), config)
	defer logger.Close()

	logger.Log(&Event{Type: EventTypeAdminAction, Severity: SeverityDebug, Outcome: OutcomeSuccess})

	time.Sleep(100 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("expected debug event dropped, got %d events", store.Len())
	}

	logger.mu.Lock()
	logger.config.IncludeDebug = true
	logger.mu.Unlock()

	logger.Log(&Event{Type: EventTypeAdminAction, Severity: SeverityDebug, Outcome: OutcomeSuccess})

	time.Sleep(100 * time.Millisecond)

	if store.Len() != 1 {
		t.Errorf("expected debug event kept with IncludeDebug, got %d events", store.Len())
	}
}

func TestLogger_AutoGenerateID(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	logger.Log(&Event{
		Type:     EventTypeLogin,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
	})
	logger.Log(&Event{
		ID:       "explicit-id",
		Type:     EventTypeLogout,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
	})

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].ID == "" {
		t.Error("expected generated event ID")
	}
	if events[1].ID != "explicit-id" {
		t.Errorf("expected explicit ID preserved, got %q", events[1].ID)
	}
}

func TestLogger_AutoSetTimestamp(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	explicit := time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)

	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	logger.Log(&Event{
		Timestamp: explicit,
		Type:      EventTypeLogout,
		Severity:  SeverityInfo,
		Outcome:   OutcomeSuccess,
	})

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set automatically")
	}
	if !events[1].Timestamp.Equal(explicit) {
		t.Errorf("expected explicit timestamp preserved, got %v", events[1].Timestamp)
	}
}

func TestLogger_SealsEventsInOrder(t *testing.T) {
	store := NewMemoryStore(100)
	chain := newTestChainer(t)
	logger := NewLogger(store, chain, DefaultConfig())
	defer logger.Close()

	for i := 0; i < 10; i++ {
		logger.Log(&Event{
			Type:     EventTypeDecision,
			Severity: SeverityInfo,
			Outcome:  OutcomeSuccess,
			Action:   "document:read",
		})
	}

	time.Sleep(200 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 100})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}

	for i := range events {
		if events[i].Seq != uint64(i+1) {
			t.Errorf("event %d: expected seq %d, got %d", i, i+1, events[i].Seq)
		}
	}

	if err := chain.Verify(events); err != nil {
		t.Errorf("sealed events failed verification: %v", err)
	}
}

func TestLogger_NilChain(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, nil, DefaultConfig())
	defer logger.Close()

	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Hash != "" || events[0].Seq != 0 {
		t.Error("expected unsealed event without a chainer")
	}

	if _, err := logger.VerifyRange(context.Background(), nil, nil); err == nil {
		t.Error("expected VerifyRange to fail without a chainer")
	}
}

func TestLogger_RecordDecision(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	evaluated := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	logger.RecordDecision(authz.Decision{
		ID:        "dec-1",
		SubjectID: "user-1",
		Action:    "document:read",
		Resource:  authz.Resource{Type: "document", ID: "doc-1"},
		Allowed:   true,
		Source:    authz.SourceRBAC,
		Reasons: []authz.Reason{
			{Kind: authz.ReasonPermission, Reference: "perm-1", Detail: "granted via role editor"},
		},
		EvaluatedAt:   evaluated,
		RoleVersion:   3,
		PolicyVersion: 7,
	})
	logger.RecordDecision(authz.Decision{
		ID:        "dec-2",
		SubjectID: "user-2",
		Action:    "document:delete",
		Resource:  authz.Resource{Type: "document", ID: "doc-2"},
		Allowed:   false,
		Source:    authz.SourcePolicyDeny,
		Reasons: []authz.Reason{
			{Kind: authz.ReasonPolicy, Reference: "pol-4@2", Detail: "deny outside business hours"},
		},
		EvaluatedAt: evaluated,
	})
	logger.RecordDecision(authz.Decision{
		ID:             "dec-3",
		SubjectID:      "user-3",
		Action:         "document:read",
		Resource:       authz.Resource{Type: "document"},
		Allowed:        false,
		Source:         authz.SourceFailClosed,
		Reasons:        []authz.Reason{{Kind: authz.ReasonError, Detail: "empty reason chain"}},
		EvaluatedAt:    evaluated,
		ConsistencyErr: true,
	})

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	allow := events[0]
	if allow.Type != EventTypeDecision {
		t.Errorf("expected type %s, got %s", EventTypeDecision, allow.Type)
	}
	if allow.Severity != SeverityInfo || allow.Outcome != OutcomeSuccess {
		t.Errorf("allow decision: got severity=%s outcome=%s", allow.Severity, allow.Outcome)
	}
	if allow.Actor.ID != "user-1" || allow.Actor.Type != "user" {
		t.Errorf("unexpected actor: %+v", allow.Actor)
	}
	if allow.Target == nil || allow.Target.ID != "doc-1" || allow.Target.Type != "document" {
		t.Errorf("unexpected target: %+v", allow.Target)
	}
	if allow.Action != "document:read" {
		t.Errorf("unexpected action: %q", allow.Action)
	}
	if allow.CorrelationID != "dec-1" {
		t.Errorf("expected correlation ID dec-1, got %q", allow.CorrelationID)
	}
	if allow.Description != "allowed document:read on document/doc-1" {
		t.Errorf("unexpected description: %q", allow.Description)
	}
	if !allow.Timestamp.Equal(evaluated) {
		t.Errorf("expected decision timestamp preserved, got %v", allow.Timestamp)
	}

	var meta map[string]any
	if err := json.Unmarshal(allow.Metadata, &meta); err != nil {
		t.Fatalf("metadata unmarshal failed: %v", err)
	}
	if meta["source"] != "rbac" {
		t.Errorf("expected metadata source rbac, got %v", meta["source"])
	}
	if meta["role_version"] != float64(3) || meta["policy_version"] != float64(7) {
		t.Errorf("expected versions in metadata, got %v / %v", meta["role_version"], meta["policy_version"])
	}

	deny := events[1]
	if deny.Severity != SeverityWarning || deny.Outcome != OutcomeFailure {
		t.Errorf("deny decision: got severity=%s outcome=%s", deny.Severity, deny.Outcome)
	}
	if deny.Description != "denied document:delete on document/doc-2" {
		t.Errorf("unexpected description: %q", deny.Description)
	}

	failClosed := events[2]
	if failClosed.Severity != SeverityCritical {
		t.Errorf("consistency failure should be critical, got %s", failClosed.Severity)
	}
	if failClosed.Description != "denied document:read on document" {
		t.Errorf("unexpected description: %q", failClosed.Description)
	}
}

func TestLogger_RecordAuth(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	at := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	logger.RecordAuth(token.AuthEvent{
		Type:      "login",
		UserID:    "user-1",
		SessionID: "sess-1",
		IP:        "10.0.0.5",
		UserAgent: "test-agent",
		Outcome:   "ok",
		At:        at,
	})
	logger.RecordAuth(token.AuthEvent{
		Type:    "login",
		UserID:  "user-2",
		IP:      "10.0.0.6",
		Outcome: "failed",
		Detail:  "invalid credentials",
		At:      at,
	})
	logger.RecordAuth(token.AuthEvent{
		Type:      "reuse_detected",
		UserID:    "user-3",
		SessionID: "sess-3",
		Outcome:   "revoked_all",
		Detail:    "refresh token replayed",
		At:        at,
	})

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	ok := events[0]
	if ok.Type != EventTypeLogin {
		t.Errorf("expected type %s, got %s", EventTypeLogin, ok.Type)
	}
	if ok.Severity != SeverityInfo || ok.Outcome != OutcomeSuccess {
		t.Errorf("login ok: got severity=%s outcome=%s", ok.Severity, ok.Outcome)
	}
	if ok.Actor.ID != "user-1" || ok.Actor.SessionID != "sess-1" {
		t.Errorf("unexpected actor: %+v", ok.Actor)
	}
	if ok.Source.IPAddress != "10.0.0.5" || ok.Source.UserAgent != "test-agent" {
		t.Errorf("unexpected source: %+v", ok.Source)
	}
	if ok.Target == nil || ok.Target.Type != "session" || ok.Target.ID != "sess-1" {
		t.Errorf("unexpected target: %+v", ok.Target)
	}
	if ok.Description != "login ok" {
		t.Errorf("unexpected description: %q", ok.Description)
	}

	failed := events[1]
	if failed.Severity != SeverityWarning || failed.Outcome != OutcomeFailure {
		t.Errorf("login failure: got severity=%s outcome=%s", failed.Severity, failed.Outcome)
	}
	if failed.Target != nil {
		t.Error("expected no target without a session")
	}
	if failed.Description != "login failed: invalid credentials" {
		t.Errorf("unexpected description: %q", failed.Description)
	}
	var meta map[string]string
	if err := json.Unmarshal(failed.Metadata, &meta); err != nil {
		t.Fatalf("metadata unmarshal failed: %v", err)
	}
	if meta["detail"] != "invalid credentials" {
		t.Errorf("expected detail in metadata, got %v", meta)
	}

	reuse := events[2]
	if reuse.Type != EventTypeReuseDetected {
		t.Errorf("expected type %s, got %s", EventTypeReuseDetected, reuse.Type)
	}
	if reuse.Severity != SeverityCritical {
		t.Errorf("reuse detection should be critical, got %s", reuse.Severity)
	}
}

func TestLogger_VerifyRange(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	for i := 0; i < 5; i++ {
		logger.Log(&Event{
			Type:     EventTypeDecision,
			Severity: SeverityInfo,
			Outcome:  OutcomeSuccess,
			Action:   "document:read",
		})
	}

	time.Sleep(200 * time.Millisecond)

	ctx := context.Background()

	verified, err := logger.VerifyRange(ctx, nil, nil)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if verified != 5 {
		t.Errorf("expected 5 verified events, got %d", verified)
	}

	// Tamper with a persisted event behind the chain's back.
	store.mu.Lock()
	store.events[2].Description = "tampered"
	store.mu.Unlock()

	if _, err := logger.VerifyRange(ctx, nil, nil); err == nil {
		t.Error("expected verification failure after tampering")
	}
}

func TestLogger_ResumeChain(t *testing.T) {
	store := NewMemoryStore(100)

	first := NewLogger(store, newTestChainer(t), DefaultConfig())
	first.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	first.Log(&Event{Type: EventTypeLogout, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	time.Sleep(100 * time.Millisecond)
	if err := first.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// A restarted logger resumes the chain from the newest stored event.
	second := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer second.Close()

	ctx := context.Background()
	if err := second.ResumeChain(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	second.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	time.Sleep(100 * time.Millisecond)

	verified, err := second.VerifyRange(ctx, nil, nil)
	if err != nil {
		t.Fatalf("verification across restart failed: %v", err)
	}
	if verified != 3 {
		t.Errorf("expected 3 verified events, got %d", verified)
	}
}

func TestLogger_Notifier(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	var mu sync.Mutex
	var seen []Event
	logger.SetNotifier(func(e Event) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})

	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	logger.Log(&Event{Type: EventTypeLogout, Severity: SeverityInfo, Outcome: OutcomeSuccess})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(seen) != 2 {
		t.Fatalf("expected 2 notified events, got %d", len(seen))
	}
	if seen[0].Hash == "" || seen[0].Seq != 1 {
		t.Error("notifier should receive sealed events")
	}
}

func TestLogger_LogAdminAction(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	logger.LogAdminAction(
		context.Background(),
		EventTypeRoleChanged,
		ActorFromSubject("admin-1", "Admin", []string{"admin"}, "sess-9"),
		Source{IPAddress: "10.1.1.1"},
		&Target{ID: "role-editor", Type: "role", Name: "editor"},
		"role:update",
		"Added permission document:write to role editor",
		map[string]any{"permission": "document:write"},
	)

	time.Sleep(100 * time.Millisecond)

	events, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Type != EventTypeRoleChanged {
		t.Errorf("expected type %s, got %s", EventTypeRoleChanged, event.Type)
	}
	if event.Severity != SeverityWarning {
		t.Errorf("admin actions should be warning severity, got %s", event.Severity)
	}
	if event.Actor.ID != "admin-1" || event.Actor.SessionID != "sess-9" {
		t.Errorf("unexpected actor: %+v", event.Actor)
	}
	if event.Target == nil || event.Target.ID != "role-editor" {
		t.Errorf("unexpected target: %+v", event.Target)
	}

	var meta map[string]any
	if err := json.Unmarshal(event.Metadata, &meta); err != nil {
		t.Fatalf("metadata unmarshal failed: %v", err)
	}
	if meta["permission"] != "document:write" {
		t.Errorf("expected permission in metadata, got %v", meta)
	}
}

func TestLogger_SetEnabled(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, newTestChainer(t), DefaultConfig())
	defer logger.Close()

	if !logger.Enabled() {
		t.Error("expected logger enabled by default")
	}

	logger.SetEnabled(false)
	if logger.Enabled() {
		t.Error("expected logger disabled")
	}

	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	time.Sleep(100 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("expected no events while disabled, got %d", store.Len())
	}

	logger.SetEnabled(true)
	logger.Log(&Event{Type: EventTypeLogin, Severity: SeverityInfo, Outcome: OutcomeSuccess})
	time.Sleep(100 * time.Millisecond)

	if store.Len() != 1 {
		t.Errorf("expected 1 event after re-enable, got %d", store.Len())
	}
}

func TestLogger_StartCleanupRoutine(t *testing.T) {
	store := NewMemoryStore(100)
	config := DefaultConfig()
	config.RetentionDays = 90
	config.CleanupInterval = 30 * time.Millisecond
	logger := NewLogger(store, nil, config)
	defer logger.Close()

	ctx := context.Background()

	// One expired event, one fresh.
	if err := store.Save(ctx, &Event{
		ID:        "old",
		Timestamp: time.Now().AddDate(0, 0, -120),
		Type:      EventTypeLogin,
		Severity:  SeverityInfo,
		Outcome:   OutcomeSuccess,
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, &Event{
		ID:        "fresh",
		Timestamp: time.Now(),
		Type:      EventTypeLogin,
		Severity:  SeverityInfo,
		Outcome:   OutcomeSuccess,
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger.StartCleanupRoutine(cleanupCtx)

	time.Sleep(100 * time.Millisecond)

	if store.Len() != 1 {
		t.Errorf("expected 1 event after cleanup, got %d", store.Len())
	}

	events, err := store.Query(ctx, QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "fresh" {
		t.Error("cleanup removed the wrong event")
	}
}

func TestLogger_BufferOverflow(t *testing.T) {
	store := NewMemoryStore(100)
	config := &Config{
		Enabled:    true,
		LogLevel:   SeverityInfo,
		BufferSize: 1,
	}
	logger := NewLogger(store, nil, config)
	defer logger.Close()

	// Flood faster than the writer drains. Dropped events must not
	// block the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			logger.Log(&Event{Type: EventTypeDecision, Severity: SeverityInfo, Outcome: OutcomeSuccess})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Log blocked on a full buffer")
	}
}

// --- MemoryStore ---

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()

	store := NewMemoryStore(100)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{
			ID: "e1", Timestamp: base, Type: EventTypeLogin,
			Severity: SeverityInfo, Outcome: OutcomeSuccess,
			Actor:  Actor{ID: "user-1", SessionID: "sess-1"},
			Source: Source{IPAddress: "10.0.0.1"},
			Action: "login", Description: "login ok",
		},
		{
			ID: "e2", Timestamp: base.Add(time.Minute), Type: EventTypeDecision,
			Severity: SeverityInfo, Outcome: OutcomeSuccess,
			Actor:  Actor{ID: "user-1", SessionID: "sess-1"},
			Target: &Target{ID: "doc-1", Type: "document"},
			Action: "document:read", Description: "allowed document:read on document/doc-1",
			CorrelationID: "dec-1",
		},
		{
			ID: "e3", Timestamp: base.Add(2 * time.Minute), Type: EventTypeDecision,
			Severity: SeverityWarning, Outcome: OutcomeFailure,
			Actor:  Actor{ID: "user-2", SessionID: "sess-2"},
			Target: &Target{ID: "doc-2", Type: "document"},
			Action: "document:delete", Description: "denied document:delete on document/doc-2",
		},
		{
			ID: "e4", Timestamp: base.Add(3 * time.Minute), Type: EventTypeReuseDetected,
			Severity: SeverityCritical, Outcome: OutcomeFailure,
			Actor:  Actor{ID: "user-2", SessionID: "sess-3"},
			Source: Source{IPAddress: "10.0.0.9"},
			Action: "reuse_detected", Description: "reuse_detected revoked_all",
		},
	}

	for i := range events {
		if err := store.Save(ctx, &events[i]); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	return store
}

func TestMemoryStore_Query(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{
			name:   "all events",
			filter: QueryFilter{Limit: 10},
			want:   []string{"e1", "e2", "e3", "e4"},
		},
		{
			name:   "by type",
			filter: QueryFilter{Types: []EventType{EventTypeDecision}, Limit: 10},
			want:   []string{"e2", "e3"},
		},
		{
			name:   "by severity",
			filter: QueryFilter{Severities: []Severity{SeverityCritical}, Limit: 10},
			want:   []string{"e4"},
		},
		{
			name:   "by outcome",
			filter: QueryFilter{Outcomes: []Outcome{OutcomeFailure}, Limit: 10},
			want:   []string{"e3", "e4"},
		},
		{
			name:   "by actor",
			filter: QueryFilter{ActorID: "user-1", Limit: 10},
			want:   []string{"e1", "e2"},
		},
		{
			name:   "by session",
			filter: QueryFilter{SessionID: "sess-2", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "by target",
			filter: QueryFilter{TargetID: "doc-1", Limit: 10},
			want:   []string{"e2"},
		},
		{
			name:   "by target type",
			filter: QueryFilter{TargetType: "document", Limit: 10},
			want:   []string{"e2", "e3"},
		},
		{
			name:   "by action",
			filter: QueryFilter{Action: "document:delete", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "by source ip",
			filter: QueryFilter{SourceIP: "10.0.0.9", Limit: 10},
			want:   []string{"e4"},
		},
		{
			name:   "by correlation id",
			filter: QueryFilter{CorrelationID: "dec-1", Limit: 10},
			want:   []string{"e2"},
		},
		{
			name: "by time range",
			filter: QueryFilter{
				StartTime: timePtr(time.Date(2026, 2, 1, 10, 1, 0, 0, time.UTC)),
				EndTime:   timePtr(time.Date(2026, 2, 1, 10, 2, 0, 0, time.UTC)),
				Limit:     10,
			},
			want: []string{"e2", "e3"},
		},
		{
			name:   "by search text",
			filter: QueryFilter{SearchText: "denied", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "limit",
			filter: QueryFilter{Limit: 2},
			want:   []string{"e1", "e2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(events))
			}
			for i := range events {
				if events[i].ID != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], events[i].ID)
				}
			}
		})
	}
}

func TestMemoryStore_QueryOrderAndOffset(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	desc, err := store.Query(ctx, QueryFilter{Limit: 10, OrderDesc: true})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(desc) != 4 || desc[0].ID != "e4" || desc[3].ID != "e1" {
		t.Errorf("unexpected descending order: %v", eventIDs(desc))
	}

	page, err := store.Query(ctx, QueryFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "e3" {
		t.Errorf("unexpected offset page: %v", eventIDs(page))
	}

	beyond, err := store.Query(ctx, QueryFilter{Limit: 10, Offset: 100})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("expected empty page beyond end, got %v", eventIDs(beyond))
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	event, err := store.Get(ctx, "e2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if event.ID != "e2" || event.Type != EventTypeDecision {
		t.Errorf("unexpected event: %+v", event)
	}

	if _, err := store.Get(ctx, "missing"); err == nil {
		t.Error("expected error for missing event")
	}
}

func TestMemoryStore_Count(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	total, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 4 {
		t.Errorf("expected 4, got %d", total)
	}

	failures, err := store.Count(ctx, QueryFilter{Outcomes: []Outcome{OutcomeFailure}})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if failures != 2 {
		t.Errorf("expected 2 failures, got %d", failures)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	deleted, err := store.Delete(ctx, time.Date(2026, 2, 1, 10, 2, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 remaining, got %d", store.Len())
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		event := &Event{
			ID:        generateEventID(),
			Timestamp: time.Now(),
			Type:      EventTypeLogin,
			Severity:  SeverityInfo,
			Outcome:   OutcomeSuccess,
		}
		if err := store.Save(ctx, event); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	if store.Len() > 10 {
		t.Errorf("expected at most 10 events after eviction, got %d", store.Len())
	}
}

func TestMemoryStore_GetStats(t *testing.T) {
	store := seedStore(t)

	stats, err := store.GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalEvents != 4 {
		t.Errorf("expected 4 total events, got %d", stats.TotalEvents)
	}
	if stats.EventsByType[string(EventTypeDecision)] != 2 {
		t.Errorf("expected 2 decision events, got %d", stats.EventsByType[string(EventTypeDecision)])
	}
	if stats.EventsBySeverity[string(SeverityCritical)] != 1 {
		t.Errorf("expected 1 critical event, got %d", stats.EventsBySeverity[string(SeverityCritical)])
	}
	if stats.OldestEvent == nil || stats.NewestEvent == nil {
		t.Fatal("expected oldest and newest timestamps")
	}
	if !stats.OldestEvent.Before(*stats.NewestEvent) {
		t.Error("oldest should precede newest")
	}
}

// --- Helpers ---

func TestSourceFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/roles", nil)
	r.RemoteAddr = "192.168.1.50:12345"
	r.Header.Set("User-Agent", "test-agent/1.0")

	source := SourceFromRequest(r)
	if source.IPAddress != "192.168.1.50:12345" {
		t.Errorf("expected remote addr, got %q", source.IPAddress)
	}
	if source.UserAgent != "test-agent/1.0" {
		t.Errorf("expected user agent, got %q", source.UserAgent)
	}

	r.Header.Set("X-Real-IP", "203.0.113.7")
	source = SourceFromRequest(r)
	if source.IPAddress != "203.0.113.7" {
		t.Errorf("expected X-Real-IP, got %q", source.IPAddress)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.4")
	source = SourceFromRequest(r)
	if source.IPAddress != "198.51.100.4" {
		t.Errorf("expected X-Forwarded-For to win, got %q", source.IPAddress)
	}
}

func TestActorFromSubject(t *testing.T) {
	actor := ActorFromSubject("user-1", "Alice", []string{"editor", "viewer"}, "sess-1")
	if actor.ID != "user-1" || actor.Type != "user" || actor.Name != "Alice" {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if len(actor.Roles) != 2 || actor.SessionID != "sess-1" {
		t.Errorf("unexpected actor roles/session: %+v", actor)
	}
}

func TestSystemActor(t *testing.T) {
	actor := SystemActor()
	if actor.ID != "system" || actor.Type != "system" {
		t.Errorf("unexpected system actor: %+v", actor)
	}
}

func TestMustJSON(t *testing.T) {
	data := mustJSON(map[string]string{"key": "value"})
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Errorf("unexpected JSON: %s", data)
	}

	// Unmarshalable values degrade to an empty object.
	data = mustJSON(make(chan int))
	if string(data) != "{}" {
		t.Errorf("expected empty object, got %s", data)
	}
}

func TestGenerateEventID(t *testing.T) {
	a := generateEventID()
	b := generateEventID()
	if a == "" || a == b {
		t.Error("expected unique non-empty IDs")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func eventIDs(events []Event) []string {
	ids := make([]string, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	return ids
}
