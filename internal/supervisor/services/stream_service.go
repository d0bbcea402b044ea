// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
)

// StreamHub matches *audit.StreamHub's RunWithContext method, keeping
// this package free of an audit import.
type StreamHub interface {
	RunWithContext(ctx context.Context) error
}

// AuditStreamService runs the audit websocket fan-out hub under
// supervision. The hub's RunWithContext already follows the suture
// pattern: it processes subscriptions and broadcasts until the context
// is canceled, then closes every client.
type AuditStreamService struct {
	hub  StreamHub
	name string
}

// NewAuditStreamService wraps the audit stream hub as a supervised
// service.
func NewAuditStreamService(hub StreamHub) *AuditStreamService {
	return &AuditStreamService{
		hub:  hub,
		name: "audit-stream-hub",
	}
}

// Serve implements suture.Service.
func (s *AuditStreamService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor log messages.
func (s *AuditStreamService) String() string {
	return s.name
}
