// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build integration

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory duckdb: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func setupTestStore(t *testing.T) (*DuckDBStore, func()) {
	t.Helper()

	db, cleanup := setupTestDB(t)

	store := NewDuckDBStore(db)
	if err := store.CreateTable(context.Background()); err != nil {
		cleanup()
		t.Fatalf("CreateTable failed: %v", err)
	}

	return store, cleanup
}

func TestDuckDBStore_CreateTable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()

	err := store.CreateTable(ctx)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	// Table should be queryable by name.
	var tableName string
	err = db.QueryRowContext(ctx, "SELECT table_name FROM information_schema.tables WHERE table_name = 'audit_events'").Scan(&tableName)
	if err != nil {
		t.Fatalf("table audit_events missing: %v", err)
	}
	if tableName != "audit_events" {
		t.Errorf("expected table audit_events, got %q", tableName)
	}
}

func TestDuckDBStore_Save(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	event := &Event{
		ID:        "evt-save-1",
		Seq:       1,
		Timestamp: time.Now().UTC(),
		Type:      EventTypeLogin,
		Severity:  SeverityInfo,
		Outcome:   OutcomeSuccess,
		Actor: Actor{
			ID:        "user-17",
			Type:      "user",
			Name:      "testuser",
			Roles:     []string{"admin", "viewer"},
			SessionID: "session-abc",
		},
		Target: &Target{
			ID:   "session-abc",
			Type: "session",
		},
		Source: Source{
			IPAddress: "203.0.113.7",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
		},
		Action:        "login",
		Description:   "login ok",
		Metadata:      json.RawMessage(`{"method":"password"}`),
		CorrelationID: "corr-17",
		RequestID:     "req-17",
		PrevHash:      "",
		Hash:          "deadbeef",
	}

	err := store.Save(ctx, event)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify event was saved with its chain columns
	var count int
	err = store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE id = ? AND seq = 1 AND hash = 'deadbeef'", event.ID).Scan(&count)
	if err != nil {
		t.Fatalf("read back saved event: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row for the saved event, got %d", count)
	}
}

func TestDuckDBStore_Get(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	originalEvent := &Event{
		ID:        "evt-get-1",
		Seq:       7,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Type:      EventTypeDecision,
		Severity:  SeverityWarning,
		Outcome:   OutcomeFailure,
		Actor: Actor{
			ID:        "user-456",
			Type:      "user",
			Roles:     []string{"viewer"},
			SessionID: "sess-1",
		},
		Target: &Target{
			ID:   "doc-9",
			Type: "document",
		},
		Source: Source{
			IPAddress: "10.0.0.8",
			UserAgent: "curl/8.0",
		},
		Action:        "document:delete",
		Description:   "denied document:delete on document/doc-9",
		Metadata:      json.RawMessage(`{"source":"policy_deny"}`),
		CorrelationID: "dec-42",
		PrevHash:      "aaaa",
		Hash:          "bbbb",
	}

	if err := store.Save(ctx, originalEvent); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	event, err := store.Get(ctx, "evt-get-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if event.ID != originalEvent.ID {
		t.Errorf("expected id %s, got %s", originalEvent.ID, event.ID)
	}
	if event.Seq != 7 {
		t.Errorf("expected seq 7, got %d", event.Seq)
	}
	if event.Type != EventTypeDecision {
		t.Errorf("expected type %s, got %s", EventTypeDecision, event.Type)
	}
	if event.Actor.ID != "user-456" || event.Actor.SessionID != "sess-1" {
		t.Errorf("unexpected actor: %+v", event.Actor)
	}
	if len(event.Actor.Roles) != 1 || event.Actor.Roles[0] != "viewer" {
		t.Errorf("unexpected roles: %v", event.Actor.Roles)
	}
	if event.Target == nil || event.Target.ID != "doc-9" || event.Target.Type != "document" {
		t.Errorf("unexpected target: %+v", event.Target)
	}
	if event.PrevHash != "aaaa" || event.Hash != "bbbb" {
		t.Errorf("Chain columns not preserved: prev=%q hash=%q", event.PrevHash, event.Hash)
	}

	var meta map[string]string
	if err := json.Unmarshal(event.Metadata, &meta); err != nil {
		t.Fatalf("metadata unmarshal failed: %v", err)
	}
	if meta["source"] != "policy_deny" {
		t.Errorf("unexpected metadata: %s", event.Metadata)
	}

	if _, err := store.Get(ctx, "nonexistent"); err == nil {
		t.Error("expected an error for a nonexistent event")
	}
}

// seedDuckDB saves a small fixture set with ascending seq values.
func seedDuckDB(t *testing.T, store *DuckDBStore) {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{
			ID: "e1", Seq: 1, Timestamp: base, Type: EventTypeLogin,
			Severity: SeverityInfo, Outcome: OutcomeSuccess,
			Actor:  Actor{ID: "user-1", Type: "user", SessionID: "sess-1"},
			Source: Source{IPAddress: "10.0.0.1"},
			Action: "login", Description: "login ok", Hash: "h1",
		},
		{
			ID: "e2", Seq: 2, Timestamp: base.Add(time.Minute), Type: EventTypeDecision,
			Severity: SeverityInfo, Outcome: OutcomeSuccess,
			Actor:  Actor{ID: "user-1", Type: "user", SessionID: "sess-1"},
			Target: &Target{ID: "doc-1", Type: "document"},
			Action: "document:read", Description: "allowed document:read on document/doc-1",
			CorrelationID: "dec-1", PrevHash: "h1", Hash: "h2",
		},
		{
			ID: "e3", Seq: 3, Timestamp: base.Add(2 * time.Minute), Type: EventTypeDecision,
			Severity: SeverityWarning, Outcome: OutcomeFailure,
			Actor:  Actor{ID: "user-2", Type: "user", SessionID: "sess-2"},
			Target: &Target{ID: "doc-2", Type: "document"},
			Action: "document:delete", Description: "denied document:delete on document/doc-2",
			PrevHash: "h2", Hash: "h3",
		},
		{
			ID: "e4", Seq: 4, Timestamp: base.Add(3 * time.Minute), Type: EventTypeReuseDetected,
			Severity: SeverityCritical, Outcome: OutcomeFailure,
			Actor:  Actor{ID: "user-2", Type: "user", SessionID: "sess-3"},
			Action: "reuse_detected", Description: "reuse_detected revoked_all",
			PrevHash: "h3", Hash: "h4",
		},
	}

	for i := range events {
		if err := store.Save(ctx, &events[i]); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
}

func TestDuckDBStore_Query(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedDuckDB(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{
			name:   "by type",
			filter: QueryFilter{Types: []EventType{EventTypeDecision}, OrderBy: "seq", Limit: 10},
			want:   []string{"e2", "e3"},
		},
		{
			name:   "by severity",
			filter: QueryFilter{Severities: []Severity{SeverityCritical}, OrderBy: "seq", Limit: 10},
			want:   []string{"e4"},
		},
		{
			name:   "by actor",
			filter: QueryFilter{ActorID: "user-1", OrderBy: "seq", Limit: 10},
			want:   []string{"e1", "e2"},
		},
		{
			name:   "by session",
			filter: QueryFilter{SessionID: "sess-2", OrderBy: "seq", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "by action",
			filter: QueryFilter{Action: "document:delete", OrderBy: "seq", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "by target",
			filter: QueryFilter{TargetID: "doc-1", OrderBy: "seq", Limit: 10},
			want:   []string{"e2"},
		},
		{
			name: "by time range",
			filter: QueryFilter{
				StartTime: timePtr(time.Date(2026, 2, 1, 10, 1, 0, 0, time.UTC)),
				EndTime:   timePtr(time.Date(2026, 2, 1, 10, 2, 0, 0, time.UTC)),
				OrderBy:   "seq", Limit: 10,
			},
			want: []string{"e2", "e3"},
		},
		{
			name:   "search text",
			filter: QueryFilter{SearchText: "denied", OrderBy: "seq", Limit: 10},
			want:   []string{"e3"},
		},
		{
			name:   "seq order descending",
			filter: QueryFilter{OrderBy: "seq", OrderDesc: true, Limit: 10},
			want:   []string{"e4", "e3", "e2", "e1"},
		},
		{
			name:   "limit and offset",
			filter: QueryFilter{OrderBy: "seq", Limit: 2, Offset: 1},
			want:   []string{"e2", "e3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
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

func TestDuckDBStore_Count(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedDuckDB(t, store)
	ctx := context.Background()

	total, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 4 {
		t.Errorf("expected 4 events total, got %d", total)
	}

	failures, err := store.Count(ctx, QueryFilter{Outcomes: []Outcome{OutcomeFailure}})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if failures != 2 {
		t.Errorf("expected 2 failures, got %d", failures)
	}
}

func TestDuckDBStore_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedDuckDB(t, store)
	ctx := context.Background()

	deleted, err := store.Delete(ctx, time.Date(2026, 2, 1, 10, 2, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	remaining, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", remaining)
	}
}

func TestDuckDBStore_GetStats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedDuckDB(t, store)

	stats, err := store.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEvents != 4 {
		t.Errorf("expected 4 total events, got %d", stats.TotalEvents)
	}
	if stats.EventsByType[string(EventTypeDecision)] != 2 {
		t.Errorf("expected 2 decision events, got %d", stats.EventsByType[string(EventTypeDecision)])
	}
	if stats.OldestEvent == nil || stats.NewestEvent == nil {
		t.Fatal("expected oldest and newest timestamps")
	}
}

// TestDuckDBStore_ChainRoundTrip seals events through a real chainer,
// persists them, reads them back in seq order, and verifies integrity.
func TestDuckDBStore_ChainRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	chain, err := NewChainer(testChainSecret)
	if err != nil {
		t.Fatalf("NewChainer failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		event := Event{
			ID:        fmt.Sprintf("chained-%d", i),
			Timestamp: time.Now().UTC(),
			Type:      EventTypeDecision,
			Severity:  SeverityInfo,
			Outcome:   OutcomeSuccess,
			Actor:     Actor{ID: "user-1", Type: "user"},
			Action:    "document:read",
			Metadata:  json.RawMessage(`{"source":"rbac"}`),
		}
		chain.Seal(&event)
		if err := store.Save(ctx, &event); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	events, err := store.Query(ctx, QueryFilter{OrderBy: "seq", Limit: 100})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 20 {
		t.Fatalf("expected 20 events, got %d", len(events))
	}

	if err := chain.Verify(events); err != nil {
		t.Errorf("persisted chain failed verification: %v", err)
	}

	// VerifyRange walks the same store through the logger.
	logger := NewLogger(store, chain, DefaultConfig())
	defer logger.Close()

	verified, err := logger.VerifyRange(ctx, nil, nil)
	if err != nil {
		t.Fatalf("VerifyRange failed: %v", err)
	}
	if verified != 20 {
		t.Errorf("expected 20 verified events, got %d", verified)
	}
}
