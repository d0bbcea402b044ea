// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/store"
)

// healthCheckTimeout bounds the persistence ping during readiness.
const healthCheckTimeout = 5 * time.Second

// HealthHandlers serves liveness and readiness probes. Probes are
// unauthenticated: they must work while the token service is down.
type HealthHandlers struct {
	mirror  *store.Mirror
	auditor *audit.Logger
	version string
	started time.Time
}

// NewHealthHandlers creates the probe handler group.
func NewHealthHandlers(mirror *store.Mirror, auditor *audit.Logger, version string) *HealthHandlers {
	return &HealthHandlers{
		mirror:  mirror,
		auditor: auditor,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// ReadinessStatus is the readiness payload with per-component detail.
type ReadinessStatus struct {
	Ready      bool              `json:"ready"`
	Components map[string]string `json:"components"`

	RoleVersion   uint64 `json:"role_version"`
	PolicyVersion uint64 `json:"policy_version"`
}

// Live reports process liveness.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus} "Alive"
// @Router /health [get]
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready reports whether the engine can evaluate and record. The store
// ping covers the persistence collaborator; evaluation itself is
// in-memory and ready as soon as the process is.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=ReadinessStatus} "Ready"
// @Failure 503 {object} APIResponse "Not ready, detail in error.details"
// @Router /health/ready [get]
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := ReadinessStatus{
		Ready:      true,
		Components: map[string]string{},
	}
	if h.mirror != nil {
		if err := h.mirror.Ping(ctx); err != nil {
			status.Ready = false
			status.Components["store"] = "unavailable"
			loggerFrom(r).Warn().Err(err).Msg("Readiness store ping failed")
		} else {
			status.Components["store"] = "ok"
		}
		status.RoleVersion = h.mirror.Graph.Version()
		status.PolicyVersion = h.mirror.Policies.Version()
	}
	if h.auditor != nil {
		if h.auditor.Enabled() {
			status.Components["audit"] = "ok"
		} else {
			status.Components["audit"] = "disabled"
		}
	}

	rw := NewResponseWriter(w, r)
	if !status.Ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"one or more components are unavailable", status)
		return
	}
	rw.Success(status)
}
