// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func setupStreamHub(t *testing.T) (*StreamHub, context.CancelFunc) {
	t.Helper()

	hub := NewStreamHub(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = hub.RunWithContext(ctx)
	}()

	// Give the hub loop time to start
	time.Sleep(10 * time.Millisecond)

	return hub, cancel
}

// createStreamClient builds a subscriber without a live connection.
// The pumps are never started, so the nil conn is never touched.
func createStreamClient(hub *StreamHub, types ...EventType) *StreamClient {
	return NewStreamClient(hub, nil, types)
}

func registerStreamClient(t *testing.T, hub *StreamHub, client *StreamClient) {
	t.Helper()

	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func TestStreamHub_RegisterUnregister(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	client1 := createStreamClient(hub)
	client2 := createStreamClient(hub)

	registerStreamClient(t, hub, client1)
	registerStreamClient(t, hub, client2)

	if count := hub.ClientCount(); count != 2 {
		t.Errorf("expected 2 clients, got %d", count)
	}

	hub.Unregister <- client1
	time.Sleep(20 * time.Millisecond)

	if count := hub.ClientCount(); count != 1 {
		t.Errorf("expected 1 client after unregister, got %d", count)
	}

	// Unregistering twice is a no-op
	hub.Unregister <- client1
	time.Sleep(20 * time.Millisecond)

	if count := hub.ClientCount(); count != 1 {
		t.Errorf("expected 1 client after duplicate unregister, got %d", count)
	}
}

func TestStreamHub_ClientIDsUnique(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	a := createStreamClient(hub)
	b := createStreamClient(hub)

	if a.ID() == b.ID() {
		t.Error("expected unique client IDs")
	}
	if a.ID() == 0 || b.ID() == 0 {
		t.Error("expected non-zero client IDs")
	}
}

func TestStreamHub_BroadcastDelivery(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	client1 := createStreamClient(hub)
	client2 := createStreamClient(hub)
	registerStreamClient(t, hub, client1)
	registerStreamClient(t, hub, client2)

	event := Event{
		ID:       "stream-1",
		Type:     EventTypeDecision,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Action:   "document:read",
	}

	hub.BroadcastEvent(event)

	for _, client := range []*StreamClient{client1, client2} {
		select {
		case msg := <-client.send:
			if msg.Type != StreamMessageTypeEvent {
				t.Errorf("expected message type %s, got %s", StreamMessageTypeEvent, msg.Type)
			}
			received, ok := msg.Data.(Event)
			if !ok {
				t.Fatalf("expected Event payload, got %T", msg.Data)
			}
			if received.ID != "stream-1" {
				t.Errorf("expected event stream-1, got %s", received.ID)
			}
		case <-time.After(500 * time.Millisecond):
			t.Errorf("client %d did not receive the event", client.ID())
		}
	}
}

func TestStreamHub_TypeFilter(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	all := createStreamClient(hub)
	decisionsOnly := createStreamClient(hub, EventTypeDecision)
	registerStreamClient(t, hub, all)
	registerStreamClient(t, hub, decisionsOnly)

	hub.BroadcastEvent(Event{ID: "login-1", Type: EventTypeLogin})

	select {
	case msg := <-all.send:
		if msg.Data.(Event).ID != "login-1" {
			t.Error("unfiltered client received wrong event")
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("unfiltered client did not receive the event")
	}

	select {
	case <-decisionsOnly.send:
		t.Error("filtered client received an event outside its subscription")
	case <-time.After(100 * time.Millisecond):
	}

	hub.BroadcastEvent(Event{ID: "dec-1", Type: EventTypeDecision})

	select {
	case msg := <-decisionsOnly.send:
		if msg.Data.(Event).ID != "dec-1" {
			t.Error("filtered client received wrong event")
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("filtered client did not receive a matching event")
	}
}

func TestStreamHub_SlowClientDisconnected(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	slow := createStreamClient(hub)
	registerStreamClient(t, hub, slow)

	// Fill the client's send queue so the next broadcast cannot be
	// delivered.
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- StreamMessage{Type: StreamMessageTypePing}
	}

	hub.BroadcastEvent(Event{ID: "overflow", Type: EventTypeDecision})
	time.Sleep(50 * time.Millisecond)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected slow client to be disconnected, got %d clients", count)
	}
}

func TestStreamHub_RateLimit(t *testing.T) {
	hub := NewStreamHub(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = hub.RunWithContext(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	client := createStreamClient(hub)
	registerStreamClient(t, hub, client)

	for i := 0; i < 5; i++ {
		hub.BroadcastEvent(Event{ID: "burst", Type: EventTypeDecision})
	}
	time.Sleep(50 * time.Millisecond)

	received := 0
	for {
		select {
		case <-client.send:
			received++
			continue
		default:
		}
		break
	}

	if received != 1 {
		t.Errorf("expected 1 event within the rate limit, got %d", received)
	}
}

func TestStreamHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := setupStreamHub(t)

	client := createStreamClient(hub)
	registerStreamClient(t, hub, client)

	cancel()
	time.Sleep(50 * time.Millisecond)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", count)
	}

	// The send channel must be closed so writePump exits.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel after shutdown")
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("send channel not closed after shutdown")
	}
}

func TestStreamHub_BroadcastWithoutClients(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	// Must not block or panic with nobody listening
	hub.BroadcastEvent(Event{ID: "nobody", Type: EventTypeDecision})
	time.Sleep(20 * time.Millisecond)
}

func TestStreamHub_ConcurrentOperations(t *testing.T) {
	hub, cancel := setupStreamHub(t)
	defer cancel()

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := createStreamClient(hub)
			hub.Register <- client
			time.Sleep(10 * time.Millisecond)
			hub.Unregister <- client
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				hub.BroadcastEvent(Event{ID: "concurrent", Type: EventTypeDecision})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent operations deadlocked")
	}
}

func TestStreamClient_Wants(t *testing.T) {
	hub := NewStreamHub(0, 0)

	all := createStreamClient(hub)
	filtered := createStreamClient(hub, EventTypeDecision, EventTypeReuseDetected)

	decision := Event{Type: EventTypeDecision}
	login := Event{Type: EventTypeLogin}

	if !all.wants(&decision) || !all.wants(&login) {
		t.Error("unfiltered client should match every type")
	}
	if !filtered.wants(&decision) {
		t.Error("filtered client should match a subscribed type")
	}
	if filtered.wants(&login) {
		t.Error("filtered client should not match an unsubscribed type")
	}
}
