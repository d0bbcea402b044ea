// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build nats

// This file wires NATS audit publishing into the supervisor tree.
// It is only compiled when the "nats" build tag is enabled.
//
// Build with NATS support:
//
//	go build -tags nats -o aegis-server ./cmd/server

package main

import (
	"github.com/tomtom215/aegis/internal/logging"
	"github.com/tomtom215/aegis/internal/supervisor"
	"github.com/tomtom215/aegis/internal/supervisor/services"
)

// AddNATSToSupervisor adds the audit publisher drain loop to the
// supervisor tree's messaging layer. The publisher queue is drained
// onto JetStream until shutdown; a crashed drain loop is restarted by
// the supervisor with backoff.
//
// Connection and embedded-server lifecycle stay with main, which shuts
// them down after the tree has stopped. No-op when components is nil
// (NATS disabled via config).
func AddNATSToSupervisor(tree *supervisor.Tree, components *NATSComponents) {
	if components == nil || components.publisher == nil {
		return
	}
	tree.AddMessagingService(services.NewEventPublisherService(components.publisher))
	logging.Info().Msg("Audit publisher added to supervisor tree (messaging layer)")
}
