// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
	"time"
)

// PeriodicRunner matches the Run loops on *token.Service and
// *token.LockoutGuard: tick at the given interval until the context is
// canceled. A non-positive interval selects the component's default.
type PeriodicRunner interface {
	Run(ctx context.Context, interval time.Duration)
}

// SessionSweeperService periodically removes expired sessions from the
// session store so abandoned logins do not accumulate.
type SessionSweeperService struct {
	runner   PeriodicRunner
	interval time.Duration
	name     string
}

// NewSessionSweeperService wraps the token service's sweep loop as a
// supervised service.
func NewSessionSweeperService(runner PeriodicRunner, interval time.Duration) *SessionSweeperService {
	return &SessionSweeperService{
		runner:   runner,
		interval: interval,
		name:     "session-sweeper",
	}
}

// Serve implements suture.Service.
func (s *SessionSweeperService) Serve(ctx context.Context) error {
	s.runner.Run(ctx, s.interval)
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (s *SessionSweeperService) String() string {
	return s.name
}

// LockoutSweeperService periodically drops idle lockout entries so the
// in-memory guard stays bounded under sustained failed-login noise.
type LockoutSweeperService struct {
	runner   PeriodicRunner
	interval time.Duration
	name     string
}

// NewLockoutSweeperService wraps the lockout guard's sweep loop as a
// supervised service.
func NewLockoutSweeperService(runner PeriodicRunner, interval time.Duration) *LockoutSweeperService {
	return &LockoutSweeperService{
		runner:   runner,
		interval: interval,
		name:     "lockout-sweeper",
	}
}

// Serve implements suture.Service.
func (s *LockoutSweeperService) Serve(ctx context.Context) error {
	s.runner.Run(ctx, s.interval)
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (s *LockoutSweeperService) String() string {
	return s.name
}
