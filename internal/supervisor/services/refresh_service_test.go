// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockSnapshotLoader struct {
	loadCount atomic.Int32
	loadErr   error
}

func (m *mockSnapshotLoader) Load(_ context.Context) error {
	m.loadCount.Add(1)
	return m.loadErr
}

func TestMirrorRefreshServiceInterface(t *testing.T) {
	var _ suture.Service = (*MirrorRefreshService)(nil)
}

func TestMirrorRefreshServiceDefaultInterval(t *testing.T) {
	t.Parallel()

	svc := NewMirrorRefreshService(&mockSnapshotLoader{}, 0)
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m default", svc.interval)
	}
	if svc.String() != "mirror-refresh" {
		t.Errorf("String() = %q, want mirror-refresh", svc.String())
	}
}

func TestMirrorRefreshServiceReloadsOnTick(t *testing.T) {
	t.Parallel()

	loader := &mockSnapshotLoader{}
	svc := NewMirrorRefreshService(loader, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if loader.loadCount.Load() < 2 {
		t.Errorf("Load calls = %d, want at least 2", loader.loadCount.Load())
	}
}

func TestMirrorRefreshServiceSurvivesLoadFailure(t *testing.T) {
	t.Parallel()

	// A failing reload must not stop the loop; the current snapshot keeps
	// serving and the next tick retries.
	loader := &mockSnapshotLoader{loadErr: errors.New("store unavailable")}
	svc := NewMirrorRefreshService(loader, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if loader.loadCount.Load() < 2 {
		t.Errorf("Load calls = %d, want at least 2 despite failures", loader.loadCount.Load())
	}
}
