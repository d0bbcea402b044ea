// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
)

// RetentionCleaner matches *audit.Logger's cleanup entry point, which
// spawns its own retention loop bound to the given context.
type RetentionCleaner interface {
	StartCleanupRoutine(ctx context.Context)
}

// AuditCleanupService runs the audit retention loop under supervision,
// deleting events older than the configured retention window.
type AuditCleanupService struct {
	cleaner RetentionCleaner
	name    string
}

// NewAuditCleanupService wraps the audit logger's retention cleanup as a
// supervised service.
func NewAuditCleanupService(cleaner RetentionCleaner) *AuditCleanupService {
	return &AuditCleanupService{
		cleaner: cleaner,
		name:    "audit-cleanup",
	}
}

// Serve implements suture.Service. The cleanup routine is bound to the
// serve context, so cancellation stops it; Serve blocks until then.
func (s *AuditCleanupService) Serve(ctx context.Context) error {
	s.cleaner.StartCleanupRoutine(ctx)
	<-ctx.Done()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (s *AuditCleanupService) String() string {
	return s.name
}
