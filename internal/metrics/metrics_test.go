// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue reads the current value of a counter child.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordDecision(t *testing.T) {
	before := counterValue(t, DecisionsTotal.WithLabelValues("deny", "policy_deny"))

	RecordDecision(false, "policy_deny", "document", 250*time.Microsecond)

	after := counterValue(t, DecisionsTotal.WithLabelValues("deny", "policy_deny"))
	if after != before+1 {
		t.Errorf("expected deny counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestRecordTokenOperation(t *testing.T) {
	okBefore := counterValue(t, TokenOperationsTotal.WithLabelValues("refresh", "ok"))
	errBefore := counterValue(t, TokenOperationsTotal.WithLabelValues("refresh", "error"))

	RecordTokenOperation("refresh", nil)
	RecordTokenOperation("refresh", errors.New("boom"))

	if got := counterValue(t, TokenOperationsTotal.WithLabelValues("refresh", "ok")); got != okBefore+1 {
		t.Errorf("expected ok counter +1, got %v -> %v", okBefore, got)
	}
	if got := counterValue(t, TokenOperationsTotal.WithLabelValues("refresh", "error")); got != errBefore+1 {
		t.Errorf("expected error counter +1, got %v -> %v", errBefore, got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := counterValue(t, APIRequestsTotal.WithLabelValues("POST", "/api/v1/authz/check", "200"))

	RecordAPIRequest("POST", "/api/v1/authz/check", 200, 3*time.Millisecond)

	after := counterValue(t, APIRequestsTotal.WithLabelValues("POST", "/api/v1/authz/check", "200"))
	if after != before+1 {
		t.Errorf("expected request counter +1, got %v -> %v", before, after)
	}
}

func TestGaugesAreUsable(t *testing.T) {
	SnapshotVersion.Set(42)
	SessionsActive.Inc()
	SessionsActive.Dec()
	AuditBufferDepth.Set(0)
	BreakerState.Set(0)
	LockoutsActive.Set(1)
}
