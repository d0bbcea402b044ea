// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build integration

package testinfra

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// dockerProbe caches the daemon check so a package full of integration
// tests probes once, not once per test.
var dockerProbe struct {
	once sync.Once
	ok   bool
}

func dockerAvailable() bool {
	dockerProbe.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dockerProbe.ok = exec.CommandContext(ctx, "docker", "info").Run() == nil
	})
	return dockerProbe.ok
}

// SkipIfNoDocker skips the calling test when no Docker daemon answers,
// so container-backed suites degrade to skips on hosts without Docker
// instead of failing.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("docker daemon not reachable")
	}
}

// CleanupContainer terminates a container during test cleanup. Failures
// are logged, not fatal: ryuk reaps leftovers either way.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	if container == nil {
		return
	}
	if err := container.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
