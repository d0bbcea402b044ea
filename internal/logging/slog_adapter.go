// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// slogBridge adapts zerolog to the slog.Handler interface so packages
// that want a *slog.Logger (sutureslog in particular) write through the
// same sink as the rest of the process.
type slogBridge struct {
	zl     zerolog.Logger
	fields []slog.Attr
	prefix string // dotted group path, empty at the root
}

// NewSlogLogger returns an *slog.Logger backed by the global zerolog
// logger.
//
//	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
func NewSlogLogger() *slog.Logger {
	return slog.New(&slogBridge{zl: Logger()})
}

func (b *slogBridge) Enabled(_ context.Context, l slog.Level) bool {
	return zlevel(l) >= b.zl.GetLevel()
}

//nolint:gocritic // slog.Handler passes the record by value
func (b *slogBridge) Handle(_ context.Context, rec slog.Record) error {
	ev := b.zl.WithLevel(zlevel(rec.Level))
	for _, a := range b.fields {
		ev = writeAttr(ev, a, b.prefix)
	}
	rec.Attrs(func(a slog.Attr) bool {
		ev = writeAttr(ev, a, b.prefix)
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *b
	next.fields = append(b.fields[:len(b.fields):len(b.fields)], attrs...)
	return &next
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	next := *b
	next.prefix = b.prefix + name + "."
	return &next
}

// writeAttr appends one attribute to the event. Group members are
// flattened into dotted keys because zerolog has no group concept.
func writeAttr(ev *zerolog.Event, a slog.Attr, prefix string) *zerolog.Event {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, member := range v.Group() {
			ev = writeAttr(ev, member, p)
		}
		return ev
	}

	key := prefix + a.Key
	switch v.Kind() {
	case slog.KindString:
		return ev.Str(key, v.String())
	case slog.KindInt64:
		return ev.Int64(key, v.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, v.Float64())
	case slog.KindBool:
		return ev.Bool(key, v.Bool())
	case slog.KindDuration:
		return ev.Dur(key, v.Duration())
	case slog.KindTime:
		return ev.Time(key, v.Time())
	default:
		return ev.Interface(key, v.Any())
	}
}

// zlevel maps slog levels onto zerolog's scale. Levels between the
// named constants round down, matching slog's own convention.
func zlevel(l slog.Level) zerolog.Level {
	switch {
	case l >= slog.LevelError:
		return zerolog.ErrorLevel
	case l >= slog.LevelWarn:
		return zerolog.WarnLevel
	case l >= slog.LevelInfo:
		return zerolog.InfoLevel
	case l >= slog.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
