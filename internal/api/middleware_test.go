// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/aegis/internal/config"
)

// =============================================================================
// Request Helpers
// =============================================================================

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard prefix", "Bearer abc123", "abc123"},
		{"lowercase prefix", "bearer abc123", "abc123"},
		{"uppercase prefix", "BEARER abc123", "abc123"},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"empty header", "", ""},
		{"prefix without token", "Bearer ", ""},
		{"bare word", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.want {
				t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	t.Parallel()

	cfg := config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100}

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 20, 0},
		{"explicit limit", "limit=50", 50, 0},
		{"limit clamped to max", "limit=5000", 100, 0},
		{"zero limit falls back", "limit=0", 20, 0},
		{"negative limit falls back", "limit=-3", 20, 0},
		{"non-numeric limit falls back", "limit=many", 20, 0},
		{"explicit offset", "offset=40", 20, 40},
		{"negative offset clamped", "offset=-1", 20, 0},
		{"both params", "limit=10&offset=5", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items?"+tt.query, nil)
			limit, offset := pageParams(r, cfg)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("pageParams(%q) = (%d, %d), want (%d, %d)",
					tt.query, limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "alpha", []string{"alpha"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", " a , b ", []string{"a", "b"}},
		{"empty parts skipped", "a,,b", []string{"a", "b"}},
		{"only separators", ",,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommaSeparated(tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCommaSeparated(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetTimeParam(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet,
		"/events?start=2026-08-25T10:00:00Z&garbled=yesterday", nil)

	if got := getTimeParam(r, "absent"); got != nil {
		t.Errorf("absent param = %v, want nil", got)
	}
	if got := getTimeParam(r, "garbled"); got != nil {
		t.Errorf("malformed param = %v, want nil", got)
	}

	got := getTimeParam(r, "start")
	if got == nil {
		t.Fatal("valid RFC 3339 param returned nil")
	}
	want := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parsed time = %v, want %v", got, want)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "alice", "alice"},
		{"newline escaped", "line1\nline2", `line1\x0aline2`},
		{"carriage return escaped", "a\rb", `a\x0db`},
		{"tab escaped", "a\tb", `a\x09b`},
		{"delete escaped", "a\x7fb", `a\x7fb`},
		{"unicode preserved", "héllo", "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"ipv4 with port", "203.0.113.9:51234", "203.0.113.9"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"bare ipv4", "203.0.113.9", "203.0.113.9"},
		{"unparseable falls back raw", "not-an-address", "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Body Decoding
// =============================================================================

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]interface{}{"username": "alice", "password": "x", "bogus": true}, "")

	assertStatus(t, w, http.StatusBadRequest)
	assertErrorCode(t, w, ErrCodeBadRequest)
}

func TestDecodeRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	// Exceeds the request body cap, so decoding must fail before the
	// handler sees the payload.
	huge := strings.Repeat("a", maxRequestBody+1)
	w := f.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]interface{}{"username": huge, "password": "x"}, "")

	assertStatus(t, w, http.StatusBadRequest)
}

// =============================================================================
// Rate Limiting
// =============================================================================

func TestRateLimitEnforcedWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.API.RateLimitDisabled = false
	f := newAPIFixtureWithConfig(t, cfg)

	// The auth group allows 10 requests per minute per client address.
	// Invalid bodies still count against the limit.
	for i := 0; i < 10; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/auth/register",
			map[string]interface{}{"username": "x"}, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("request %d: status = %d, want 400", i+1, w.Code)
		}
	}

	w := f.do(t, http.MethodPost, "/api/v1/auth/register",
		map[string]interface{}{"username": "x"}, "")
	assertStatus(t, w, http.StatusTooManyRequests)
	assertErrorCode(t, w, ErrCodeTooManyRequests)
}

func TestRateLimitBypassedWhenDisabled(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	// The default test config disables limiting; far more requests than
	// any preset allows must all reach the handler.
	for i := 0; i < 25; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/auth/register",
			map[string]interface{}{"username": "x"}, "")
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited with limiting disabled", i+1)
		}
	}
}
