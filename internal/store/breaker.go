// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package store

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aegis/internal/authz"
	"github.com/tomtom215/aegis/internal/identity"
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/metrics"
)

// BreakerConfig holds circuit breaker settings for the backend.
type BreakerConfig struct {
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore wraps a Store with a circuit breaker. Backend failures
// surface as UnavailableError; with the breaker open, calls fail fast
// without touching the backend. A NotFoundError passes through untouched
// and does not count as a failure.
type BreakerStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerStore wraps a backend store.
func NewBreakerStore(inner Store, cfg BreakerConfig) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || authz.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	}

	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// execute runs one backend call through the breaker with latency and
// error accounting.
func (b *BreakerStore) execute(op, entity string, fn func() error) error {
	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	metrics.StoreQueryDuration.WithLabelValues(op, entity).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	if authz.IsNotFound(err) {
		return err
	}
	metrics.StoreErrorsTotal.WithLabelValues(op, entity).Inc()
	return unavailable(entity+" store", err)
}

func (b *BreakerStore) LoadRoles(ctx context.Context) ([]authz.Role, error) {
	var out []authz.Role
	err := b.execute("load", "roles", func() error {
		var err error
		out, err = b.inner.LoadRoles(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) LoadPermissions(ctx context.Context) ([]authz.Permission, error) {
	var out []authz.Permission
	err := b.execute("load", "permissions", func() error {
		var err error
		out, err = b.inner.LoadPermissions(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) LoadPolicies(ctx context.Context) ([]authz.Policy, error) {
	var out []authz.Policy
	err := b.execute("load", "policies", func() error {
		var err error
		out, err = b.inner.LoadPolicies(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) LoadUsers(ctx context.Context) ([]identity.User, error) {
	var out []identity.User
	err := b.execute("load", "users", func() error {
		var err error
		out, err = b.inner.LoadUsers(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) LoadAttributeDefinitions(ctx context.Context) ([]identity.AttributeDefinition, error) {
	var out []identity.AttributeDefinition
	err := b.execute("load", "attributes", func() error {
		var err error
		out, err = b.inner.LoadAttributeDefinitions(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) SaveRole(ctx context.Context, role authz.Role) error {
	return b.execute("save", "roles", func() error { return b.inner.SaveRole(ctx, role) })
}

func (b *BreakerStore) DeleteRole(ctx context.Context, id string) error {
	return b.execute("delete", "roles", func() error { return b.inner.DeleteRole(ctx, id) })
}

func (b *BreakerStore) SavePermission(ctx context.Context, p authz.Permission) error {
	return b.execute("save", "permissions", func() error { return b.inner.SavePermission(ctx, p) })
}

func (b *BreakerStore) DeletePermission(ctx context.Context, id string) error {
	return b.execute("delete", "permissions", func() error { return b.inner.DeletePermission(ctx, id) })
}

func (b *BreakerStore) SavePolicy(ctx context.Context, p authz.Policy) error {
	return b.execute("save", "policies", func() error { return b.inner.SavePolicy(ctx, p) })
}

func (b *BreakerStore) DeletePolicy(ctx context.Context, id string) error {
	return b.execute("delete", "policies", func() error { return b.inner.DeletePolicy(ctx, id) })
}

func (b *BreakerStore) PolicyHistory(ctx context.Context, id string) ([]authz.Policy, error) {
	var out []authz.Policy
	err := b.execute("load", "policy_history", func() error {
		var err error
		out, err = b.inner.PolicyHistory(ctx, id)
		return err
	})
	return out, err
}

func (b *BreakerStore) SaveUser(ctx context.Context, u identity.User) error {
	return b.execute("save", "users", func() error { return b.inner.SaveUser(ctx, u) })
}

func (b *BreakerStore) SaveAttributeDefinition(ctx context.Context, def identity.AttributeDefinition) error {
	return b.execute("save", "attributes", func() error { return b.inner.SaveAttributeDefinition(ctx, def) })
}

func (b *BreakerStore) DeleteAttributeDefinition(ctx context.Context, path string) error {
	return b.execute("delete", "attributes", func() error { return b.inner.DeleteAttributeDefinition(ctx, path) })
}

// Ping bypasses the breaker so health checks observe the real backend
// even while the circuit is open.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

// Close releases the wrapped store.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.breaker.State()
}
