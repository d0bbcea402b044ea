// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package logging provides centralized zerolog-based logging for Aegis.
//
// All components log through this package so that output format, level and
// field naming stay consistent across the decision engine, the token
// service and the HTTP layer:
//
//   - zerolog's allocation-free structured events
//   - JSON in production, human-readable console output in development
//   - Correlation ID propagation through context
//   - slog adapter for libraries that require *slog.Logger (sutureslog)
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("session_id", sid).Msg("Session created")
//	logging.Error().Err(err).Msg("Policy load failed")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// chain is silently discarded by zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger.
type Config struct {
	Level     string    // minimum level: trace, debug, info, warn, error, fatal (default info)
	Format    string    // "json" or "console" (default json)
	Caller    bool      // annotate entries with file:line
	Timestamp bool      // stamp entries with the wall clock
	Output    io.Writer // destination, os.Stderr when nil
}

// DefaultConfig is what init applies before anyone calls Init.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Caller:    false,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

//nolint:gochecknoinits // guarantees a working logger before explicit Init()
func init() {
	apply(DefaultConfig())
}

// Init initializes the global logger. Call early in application startup,
// typically from main(). Safe to call multiple times; subsequent calls
// reconfigure the logger.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	apply(cfg)
}

// apply configures the global logger. Caller holds mu.
func apply(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	sink := cfg.Output
	if cfg.Format == "console" {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: "15:04:05"}
	}

	root := zerolog.New(sink)
	if cfg.Timestamp {
		root = root.With().Timestamp().Logger()
	}
	if cfg.Caller {
		root = root.With().Caller().Logger()
	}

	log = root
}

// parseLevel maps a config string onto a zerolog level. The "warning"
// alias is accepted; anything unparseable falls back to info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// current returns a copy of the global logger under the read lock.
func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Logger hands out a copy of the global logger.
func Logger() zerolog.Logger {
	return current()
}

// With opens a child logger context carrying extra default fields.
//
//	evalLogger := logging.With().Str("component", "evaluator").Logger()
func With() zerolog.Context {
	return current().With()
}

// Debug opens a debug-level event on the global logger.
func Debug() *zerolog.Event {
	l := current()
	return l.Debug()
}

// Info opens an info-level event on the global logger.
func Info() *zerolog.Event {
	l := current()
	return l.Info()
}

// Warn opens a warn-level event on the global logger.
func Warn() *zerolog.Event {
	l := current()
	return l.Warn()
}

// Error opens an error-level event on the global logger.
func Error() *zerolog.Event {
	l := current()
	return l.Error()
}

// Fatal opens a fatal-level event; zerolog exits the process after the
// message is written.
func Fatal() *zerolog.Event {
	l := current()
	return l.Fatal()
}

// GetLevel reports the global level currently in force.
func GetLevel() zerolog.Level {
	return zerolog.GlobalLevel()
}

// SetLevelString re-parses level and applies it globally. Used for
// runtime level changes without a full Init.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// NewTestLogger returns a logger writing to w, for capturing output in
// tests.
//
//	var out bytes.Buffer
//	logger := logging.NewTestLogger(&out)
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
