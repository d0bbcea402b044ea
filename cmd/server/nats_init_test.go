// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build nats

package main

import (
	"context"
	"testing"
	"time"
)

// IsRunning must be nil-safe because main calls it unconditionally.
func TestNATSComponents_IsRunning(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *NATSComponents
		if c.IsRunning() {
			t.Error("IsRunning() = true on a nil receiver")
		}
	})

	t.Run("not running", func(t *testing.T) {
		c := &NATSComponents{}
		if c.IsRunning() {
			t.Error("IsRunning() = true before Start")
		}
	})

	t.Run("running", func(t *testing.T) {
		c := &NATSComponents{running: true}
		if !c.IsRunning() {
			t.Error("IsRunning() = false while running")
		}
	})
}

func TestNATSComponents_Shutdown(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *NATSComponents
		// Should not panic
		c.Shutdown(context.Background())
	})

	t.Run("zero value", func(t *testing.T) {
		c := &NATSComponents{}
		// Should not panic even without a shutdownComplete channel
		c.Shutdown(context.Background())
	})

	t.Run("shutdown completes", func(t *testing.T) {
		c := &NATSComponents{
			running:          true,
			shutdownComplete: make(chan struct{}),
		}

		done := make(chan struct{})
		go func() {
			c.Shutdown(context.Background())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("Shutdown did not return within a second")
		}

		if c.IsRunning() {
			t.Error("IsRunning() = true after Shutdown")
		}

		select {
		case <-c.shutdownComplete:
			// Good - channel closed
		default:
			t.Error("shutdownComplete should be closed after Shutdown")
		}
	})

	t.Run("second shutdown is a no-op", func(t *testing.T) {
		c := &NATSComponents{
			running:          true,
			shutdownComplete: make(chan struct{}),
		}
		c.Shutdown(context.Background())
		// Must not panic on the already-closed channel
		c.Shutdown(context.Background())
	})
}

// TestNATSComponents_Publisher tests the Publisher accessor.
func TestNATSComponents_Publisher(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *NATSComponents
		if c.Publisher() != nil {
			t.Error("Publisher() should return nil for nil components")
		}
	})

	t.Run("no publisher", func(t *testing.T) {
		c := &NATSComponents{}
		if c.Publisher() != nil {
			t.Error("Publisher() should return nil before initialization")
		}
	})
}
