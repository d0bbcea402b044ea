// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := NewSession("user-1", 2, time.Hour, "203.0.113.9", "cli/1.0")
	sess.RefreshVersion = 3
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || got.State != StatePasswordVerified {
		t.Errorf("got %s/%s, want user-1/%s", got.UserID, got.State, StatePasswordVerified)
	}
	if got.RefreshVersion != 3 || got.UserVersion != 2 {
		t.Errorf("versions = %d/%d, want 3/2", got.RefreshVersion, got.UserVersion)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, sess.ExpiresAt)
	}

	if _, err := store.Get(ctx, "missing"); err != ErrSessionNotFound {
		t.Errorf("missing session err = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreSaveReplacesState(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := NewSession("user-1", 1, time.Hour, "", "")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := sess.Transition(StateActive); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	sess.RefreshVersion = 1
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateActive || got.RefreshVersion != 1 {
		t.Errorf("got %s/v%d, want active/v1", got.State, got.RefreshVersion)
	}
}

func TestRedisStoreByUserID(t *testing.T) {
	store, client := newRedisStore(t)
	ctx := context.Background()

	first := NewSession("user-1", 1, time.Hour, "", "")
	second := NewSession("user-1", 1, time.Hour, "", "")
	other := NewSession("user-2", 1, time.Hour, "", "")
	for _, s := range []*Session{first, second, other} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.ByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("ByUserID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}

	// An index entry whose session key already expired gets scrubbed.
	if err := client.Del(ctx, redisSessionPrefix+second.ID).Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}
	got, err = store.ByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("ByUserID: %v", err)
	}
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("after scrub got %d sessions", len(got))
	}
	members, err := client.SMembers(ctx, redisUserIndexPrefix+"user-1").Result()
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("index still holds %d ids, want 1", len(members))
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, client := newRedisStore(t)
	ctx := context.Background()

	sess := NewSession("user-1", 1, time.Hour, "", "")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); err != ErrSessionNotFound {
		t.Errorf("deleted session still readable: %v", err)
	}
	members, err := client.SMembers(ctx, redisUserIndexPrefix+"user-1").Result()
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("index still holds %d ids after delete", len(members))
	}
}

func TestRedisStoreDeleteExpiredScrubsIndexes(t *testing.T) {
	store, client := newRedisStore(t)
	ctx := context.Background()

	live := NewSession("user-1", 1, time.Hour, "", "")
	gone := NewSession("user-1", 1, time.Hour, "", "")
	for _, s := range []*Session{live, gone} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := client.Del(ctx, redisSessionPrefix+gone.ID).Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}

	n, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("scrubbed %d entries, want 1", n)
	}
	members, err := client.SMembers(ctx, redisUserIndexPrefix+"user-1").Result()
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 1 || members[0] != live.ID {
		t.Errorf("index = %v, want only the live session", members)
	}
}
