// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package services

import (
	"context"
)

// QueueDrainer matches *audit.Publisher's Run method: drain the publish
// queue until the context is canceled.
type QueueDrainer interface {
	Run(ctx context.Context) error
}

// EventPublisherService runs the audit event publisher pump under
// supervision. Only wired when the server is built with -tags nats and
// publishing is enabled; the stub publisher's Run fails immediately, so
// it must never be added to the tree.
type EventPublisherService struct {
	publisher QueueDrainer
	name      string
}

// NewEventPublisherService wraps the audit publisher as a supervised
// service.
func NewEventPublisherService(publisher QueueDrainer) *EventPublisherService {
	return &EventPublisherService{
		publisher: publisher,
		name:      "event-publisher",
	}
}

// Serve implements suture.Service.
func (s *EventPublisherService) Serve(ctx context.Context) error {
	return s.publisher.Run(ctx)
}

// String implements fmt.Stringer for supervisor log messages.
func (s *EventPublisherService) String() string {
	return s.name
}
