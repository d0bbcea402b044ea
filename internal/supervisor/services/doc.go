// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

/*
Package services provides suture.Service wrappers for Aegis components.

Each wrapper adapts one component's lifecycle to suture's context-aware
Serve pattern and names itself via fmt.Stringer for supervisor logs.
Three lifecycle shapes appear:

  - delegation: the component already blocks until its context ends
    (AuditStreamService, EventPublisherService, the sweepers)
  - owned loop: the wrapper runs the ticker itself because the component
    only exposes a one-shot operation (MirrorRefreshService over
    Mirror.Load)
  - listener translation: ListenAndServe in a goroutine plus a bounded
    graceful Shutdown on cancellation (HTTPServerService)

Return values keep suture's contract: nil stops cleanly without
restart, any error triggers a supervised restart, and ctx.Err() is the
normal shutdown result.

Wrappers accept small local interfaces instead of the concrete types so
this package imports neither the audit, token, store nor api packages,
and tests mock the component in a few lines.
*/
package services
