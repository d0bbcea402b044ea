// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

/*
Package supervisor provides process supervision for Aegis using suture v4.

The package implements a hierarchical supervisor tree managing every
long-running component of the server: Erlang/OTP-style supervision with
automatic restart, failure isolation between layers, and graceful
shutdown.

# Overview

Services are organized into three layers:

	Root ("aegis")
	├── Store ("store-layer")
	│   ├── MirrorRefreshService (periodic engine snapshot reload)
	│   ├── SessionSweeperService (expired session cleanup)
	│   ├── LockoutSweeperService (idle lockout entry cleanup)
	│   └── AuditCleanupService (audit retention)
	├── Messaging ("messaging-layer")
	│   ├── AuditStreamService (websocket fan-out hub)
	│   └── EventPublisherService (NATS, build tag: nats)
	└── API ("api-layer")
	    └── HTTPServerService

The hierarchy ensures a crash in one layer cannot take down the others:
a stream hub failure never interrupts decision evaluation, and store
maintenance failures never affect API availability.

# Restart Behavior

Crashed services are restarted automatically with exponential backoff.
TreeConfig controls the failure threshold, decay rate, backoff duration
and per-service shutdown timeout; the defaults match suture's own.

A service returning nil stops cleanly and is not restarted. A service
returning an error is restarted. suture.ErrDoNotRestart and
suture.ErrTerminateSupervisorTree keep their usual suture semantics.

# Usage

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddStoreService(services.NewSessionSweeperService(tokens, interval))
	tree.AddMessagingService(services.NewAuditStreamService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, shutdownTimeout))
	return tree.Serve(ctx)

Supervisor lifecycle events are logged through sutureslog, bridged onto
the zerolog output by logging.NewSlogLogger.

# What Is Not Supervised

DuckDB and the persistence collaborator are not supervised: both are
embedded libraries whose connection handling lives in their own
packages, and the store's circuit breaker already isolates backend
failures as UnavailableError.
*/
package supervisor
