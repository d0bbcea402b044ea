// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package testinfra starts throwaway containers for integration tests.
//
// Two backends get the treatment: PostgreSQL for the persistence
// mirror and a JetStream-enabled NATS server for audit event
// publishing. Both run through testcontainers-go, so the suites
// exercise real SQL and real broker wire protocol instead of mocks.
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    t.Cleanup(func() { testinfra.CleanupContainer(t, ctx, pg.Container) })
//
//	    pool, err := store.NewPool(ctx, store.PoolConfig{DSN: pg.DSN})
//	    // exercise the real schema and queries
//	}
//
// Everything here sits behind the integration build tag. SkipIfNoDocker
// turns a missing Docker daemon into a skip, so `go test ./...` stays
// green on machines without Docker; CI runs the full set with
// `-tags integration`. The first run pulls images, later runs hit the
// local cache.
package testinfra
