// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestTreeIntegration drives the full tree the way cmd/server wires it:
// maintenance loops in the store layer, the stream hub in messaging and
// the HTTP server in the API layer.
func TestTreeIntegration(t *testing.T) {
	t.Run("all three layers run services", func(t *testing.T) {
		tree, err := NewTree(testSlogLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   50 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("NewTree: %v", err)
		}

		sweeperSvc := newFakeService("session-sweeper")
		refreshSvc := newFakeService("mirror-refresh")
		streamSvc := newFakeService("audit-stream-hub")
		httpSvc := newFakeService("http-server")

		tree.AddStoreService(sweeperSvc)
		tree.AddStoreService(refreshSvc)
		tree.AddMessagingService(streamSvc)
		tree.AddAPIService(httpSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		all := []*fakeService{sweeperSvc, refreshSvc, streamSvc, httpSvc}
		started := false
		for i := 0; i < 10 && !started; i++ {
			time.Sleep(20 * time.Millisecond)
			started = true
			for _, svc := range all {
				if svc.StartCount() < 1 {
					started = false
				}
			}
		}
		if !started {
			for _, svc := range all {
				if svc.StartCount() < 1 {
					t.Errorf("%s was not started", svc)
				}
			}
		}

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree still running after cancel")
		}
	})

	t.Run("failure in messaging leaves store and api untouched", func(t *testing.T) {
		tree, _ := NewTree(testSlogLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})

		failingSvc := newFakeService("failing-stream")
		failingSvc.SetFailCount(3)

		stableStore := newFakeService("stable-sweeper")
		stableAPI := newFakeService("stable-http")

		tree.AddStoreService(stableStore)
		tree.AddMessagingService(failingSvc)
		tree.AddAPIService(stableAPI)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		time.Sleep(150 * time.Millisecond)

		if failingSvc.StartCount() < 3 {
			t.Errorf("failing service starts = %d, want at least 3", failingSvc.StartCount())
		}

		// The stable services must have started exactly once: restarts of
		// the messaging service never ripple into the other layers.
		if stableStore.StartCount() != 1 {
			t.Errorf("store service starts = %d, want 1", stableStore.StartCount())
		}
		if stableAPI.StartCount() != 1 {
			t.Errorf("api service starts = %d, want 1", stableAPI.StartCount())
		}

		cancel()
		<-errCh
	})
}
