// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package token

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// LockoutConfig tunes the failed-login guard.
type LockoutConfig struct {
	// Enabled turns the guard on. Disabled guards allow everything.
	Enabled bool `koanf:"enabled"`

	// MaxAttempts failed attempts within one cycle trigger a lockout.
	MaxAttempts int `koanf:"max_attempts"`

	// BaseDuration is the first lockout length; each subsequent lockout
	// doubles it up to MaxDuration.
	BaseDuration time.Duration `koanf:"base_duration"`
	MaxDuration  time.Duration `koanf:"max_duration"`

	// TrackByIP also counts failures per source IP so a distributed
	// guessing run cannot rotate usernames freely.
	TrackByIP bool `koanf:"track_by_ip"`

	// RetainFor keeps idle entries for forensics before cleanup.
	RetainFor time.Duration `koanf:"retain_for"`
}

// DefaultLockoutConfig returns the production defaults.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Enabled:      true,
		MaxAttempts:  5,
		BaseDuration: 15 * time.Minute,
		MaxDuration:  24 * time.Hour,
		TrackByIP:    true,
		RetainFor:    24 * time.Hour,
	}
}

// lockoutEntry tracks failures for one subject (a username or "ip:" key).
type lockoutEntry struct {
	subject     string
	failures    int
	lockouts    int
	lastAttempt time.Time
	lockedUntil time.Time
}

func (e *lockoutEntry) locked(now time.Time) bool {
	return now.Before(e.lockedUntil)
}

// LockoutGuard counts failed logins per subject and locks noisy ones out
// with exponential backoff.
type LockoutGuard struct {
	cfg LockoutConfig

	mu      sync.Mutex
	entries map[string]*lockoutEntry
	now     func() time.Time
}

// NewLockoutGuard returns a guard with the given config.
func NewLockoutGuard(cfg LockoutConfig) *LockoutGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultLockoutConfig().MaxAttempts
	}
	if cfg.BaseDuration <= 0 {
		cfg.BaseDuration = DefaultLockoutConfig().BaseDuration
	}
	if cfg.MaxDuration < cfg.BaseDuration {
		cfg.MaxDuration = DefaultLockoutConfig().MaxDuration
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = DefaultLockoutConfig().RetainFor
	}
	return &LockoutGuard{
		cfg:     cfg,
		entries: make(map[string]*lockoutEntry),
		now:     time.Now,
	}
}

// CheckLocked reports whether the username or its source IP is locked
// out, and for how much longer. Callers surface the remaining time as a
// Retry-After header.
func (g *LockoutGuard) CheckLocked(username, ip string) (bool, time.Duration) {
	if !g.cfg.Enabled {
		return false, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for _, subject := range g.subjects(username, ip) {
		if e, ok := g.entries[subject]; ok && e.locked(now) {
			return true, e.lockedUntil.Sub(now)
		}
	}
	return false, 0
}

// RecordFailure counts one failed attempt against the username and,
// when configured, the source IP. Returns lockout state after counting.
func (g *LockoutGuard) RecordFailure(username, ip string) (bool, time.Duration) {
	if !g.cfg.Enabled {
		return false, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	locked := false
	var remaining time.Duration
	for _, subject := range g.subjects(username, ip) {
		if l, r := g.recordLocked(subject); l && (remaining == 0 || r > remaining) {
			locked = true
			remaining = r
		}
	}
	return locked, remaining
}

// recordLocked counts one failure for subject. Callers hold mu.
func (g *LockoutGuard) recordLocked(subject string) (bool, time.Duration) {
	now := g.now()
	e, ok := g.entries[subject]
	if !ok {
		e = &lockoutEntry{subject: subject}
		g.entries[subject] = e
	}
	if e.locked(now) {
		return true, e.lockedUntil.Sub(now)
	}

	e.failures++
	e.lastAttempt = now
	if e.failures < g.cfg.MaxAttempts {
		return false, 0
	}

	// Double the lockout for every previous one, capped.
	duration := g.cfg.BaseDuration
	for i := 0; i < e.lockouts && duration < g.cfg.MaxDuration; i++ {
		duration *= 2
	}
	if duration > g.cfg.MaxDuration {
		duration = g.cfg.MaxDuration
	}
	e.lockedUntil = now.Add(duration)
	e.lockouts++
	e.failures = 0
	g.updateGauge(now)
	logging.Warn().
		Str("subject", subject).
		Dur("duration", duration).
		Int("lockout_count", e.lockouts).
		Msg("Subject locked out after repeated failures")
	return true, duration
}

// updateGauge recounts currently locked subjects. Callers hold mu.
func (g *LockoutGuard) updateGauge(now time.Time) {
	locked := 0
	for _, e := range g.entries {
		if e.locked(now) {
			locked++
		}
	}
	metrics.LockoutsActive.Set(float64(locked))
}

// Clear wipes the failure history for a username after a successful
// login. IP entries are left alone so a live guessing run stays throttled.
func (g *LockoutGuard) Clear(username string) {
	if !g.cfg.Enabled {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, username)
}

// Unlock removes a subject's lockout entirely (admin action). The
// subject may be a username or an "ip:<addr>" key.
func (g *LockoutGuard) Unlock(subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[subject]; ok {
		delete(g.entries, subject)
		g.updateGauge(g.now())
		logging.Info().Str("subject", subject).Msg("Lockout cleared by administrator")
	}
}

// Sweep drops idle entries and returns how many were removed. Expired
// lockouts decrement the active gauge.
func (g *LockoutGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.cfg.RetainFor)
	removed := 0
	for subject, e := range g.entries {
		if e.locked(now) {
			continue
		}
		if e.lastAttempt.Before(cutoff) && e.lockedUntil.Before(cutoff) {
			delete(g.entries, subject)
			removed++
		}
	}
	g.updateGauge(now)
	return removed
}

// Run sweeps periodically until the context ends.
func (g *LockoutGuard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				logging.Debug().Int("removed", n).Msg("Swept idle lockout entries")
			}
		}
	}
}

func (g *LockoutGuard) subjects(username, ip string) []string {
	subjects := make([]string, 0, 2)
	if username != "" {
		subjects = append(subjects, username)
	}
	if g.cfg.TrackByIP && ip != "" {
		subjects = append(subjects, "ip:"+ip)
	}
	return subjects
}
