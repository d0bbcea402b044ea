// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build !nats

// This file provides a no-op stub for NATS supervisor integration.
// It is only compiled when the "nats" build tag is NOT enabled.
//
// Build without NATS support (default):
//
//	go build -o aegis-server ./cmd/server

package main

import (
	"github.com/tomtom215/aegis/internal/supervisor"
)

// AddNATSToSupervisor is a no-op stub for non-NATS builds. main can
// call it unconditionally; the stub InitNATS always hands it nil
// components.
func AddNATSToSupervisor(_ *supervisor.Tree, _ *NATSComponents) {
	// No-op: NATS not compiled in
}
