// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
	"time"

	"github.com/tomtom215/aegis/internal/logging"
)

// SnapshotLoader matches *store.Mirror's Load method: replace the
// in-memory engine state from the persistence collaborator.
type SnapshotLoader interface {
	Load(ctx context.Context) error
}

// MirrorRefreshService periodically reloads the engine snapshot from the
// durable store. This picks up out-of-band changes written by another
// replica; a failed reload keeps the current snapshot serving and is
// retried on the next tick.
type MirrorRefreshService struct {
	loader   SnapshotLoader
	interval time.Duration
	name     string
}

// NewMirrorRefreshService wraps periodic snapshot reload as a supervised
// service. A non-positive interval selects one minute.
func NewMirrorRefreshService(loader SnapshotLoader, interval time.Duration) *MirrorRefreshService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MirrorRefreshService{
		loader:   loader,
		interval: interval,
		name:     "mirror-refresh",
	}
}

// Serve implements suture.Service.
func (s *MirrorRefreshService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.loader.Load(ctx); err != nil {
				logging.Warn().Err(err).Msg("Engine snapshot refresh failed, keeping current snapshot")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor log messages.
func (s *MirrorRefreshService) String() string {
	return s.name
}
