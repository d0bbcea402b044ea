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

type mockQueueDrainer struct {
	runCount atomic.Int32
	runErr   error
}

func (m *mockQueueDrainer) Run(ctx context.Context) error {
	m.runCount.Add(1)
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestEventPublisherServiceInterface(t *testing.T) {
	var _ suture.Service = (*EventPublisherService)(nil)
}

func TestEventPublisherServiceDelegates(t *testing.T) {
	t.Parallel()

	drainer := &mockQueueDrainer{}
	svc := NewEventPublisherService(drainer)

	if svc.String() != "event-publisher" {
		t.Errorf("String() = %q, want event-publisher", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if drainer.runCount.Load() != 1 {
		t.Errorf("Run calls = %d, want 1", drainer.runCount.Load())
	}
}

func TestEventPublisherServicePropagatesError(t *testing.T) {
	t.Parallel()

	pubErr := errors.New("broker unreachable")
	svc := NewEventPublisherService(&mockQueueDrainer{runErr: pubErr})

	if err := svc.Serve(context.Background()); !errors.Is(err, pubErr) {
		t.Errorf("Serve() = %v, want %v", err, pubErr)
	}
}
