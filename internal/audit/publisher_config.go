// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// StreamName is the JetStream stream holding published audit events.
const StreamName = "AEGIS_AUDIT"

// SubjectWildcard matches every audit subject.
const SubjectWildcard = "audit.>"

// EventTopic returns the NATS subject for an event type.
// Format: audit.<type>, e.g. audit.authz.decision, audit.auth.login.
func EventTopic(t EventType) string {
	return "audit." + string(t)
}

// PublisherConfig configures the NATS connection and the publish queue.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int           // negative means reconnect forever
	ReconnectWait    time.Duration // pause between reconnect attempts
	ReconnectBuffer  int           // bytes buffered while disconnected
	QueueSize        int           // Enqueue buffer before events drop
	EnableTrackMsgID bool          //nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns the publisher settings the server
// ships with.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 << 20,
		QueueSize:        1024,
		EnableTrackMsgID: true,
	}
}

// CircuitBreakerConfig sizes the breaker wrapped around publishes.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // counter reset period while closed
	Timeout          time.Duration // open duration before probing again
	FailureThreshold uint32        // consecutive failures that trip it
}

// DefaultCircuitBreakerConfig returns the breaker settings the server
// ships with.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// NewCircuitBreaker builds a gobreaker instance from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})
}
