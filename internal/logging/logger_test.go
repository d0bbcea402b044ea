// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want \"info\"", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want \"json\"", cfg.Format)
	}
	if cfg.Caller {
		t.Error("Caller = true, want false")
	}
	if !cfg.Timestamp {
		t.Error("Timestamp = false, want true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:     "debug",
		Format:    "json",
		Timestamp: true,
		Output:    &buf,
	})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("engine ready")

	output := buf.String()
	if !strings.Contains(output, "engine ready") {
		t.Errorf("log line lacks the message: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("log line lacks the level field: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"WARN", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		name := tt.input
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWithCreatesChildLogger(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	child := With().Str("component", "evaluator").Logger()
	child.Info().Msg("snapshot swapped")

	output := buf.String()
	if !strings.Contains(output, `"component":"evaluator"`) {
		t.Errorf("child logger dropped its component field: %s", output)
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewTestLogger(&buf)
	logger.Warn().Str("policy_id", "p1").Msg("operand type mismatch")

	output := buf.String()
	if !strings.Contains(output, `"policy_id":"p1"`) {
		t.Errorf("structured field missing: %s", output)
	}
	if !strings.Contains(output, `"level":"warn"`) {
		t.Errorf("warn level missing: %s", output)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("console output")

	if !strings.Contains(buf.String(), "console output") {
		t.Errorf("console line lacks the message: %s", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	SetLevelString("error")
	if got := GetLevel(); got != zerolog.ErrorLevel {
		t.Errorf("GetLevel() = %v, want ErrorLevel", got)
	}

	SetLevelString("trace")
	if got := GetLevel(); got != zerolog.TraceLevel {
		t.Errorf("GetLevel() = %v, want TraceLevel", got)
	}
}
