// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog provides OpenTelemetry aware slog.Handler implementations.
package otelslog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/z5labs/california/pkg/slogfield"

	"go.opentelemetry.io/otel/trace"
)

// Handler correlates records with the active span by adding
// an "otel" group holding the trace and span ids.
type Handler struct {
	slog slog.Handler
}

// NewHandler wraps h.
func NewHandler(h slog.Handler) *Handler {
	return &Handler{slog: h}
}

// New is shorthand for slog.New(NewHandler(h)).
func New(h slog.Handler) *slog.Logger {
	return slog.New(NewHandler(h))
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.slog.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return h.slog.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(
		slog.Group(
			"otel",
			slogfield.String("trace_id", spanCtx.TraceID().String()),
			slogfield.String("span_id", spanCtx.SpanID().String()),
		),
	)
	return h.slog.Handle(ctx, r)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewHandler(h.slog.WithAttrs(attrs))
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return NewHandler(h.slog.WithGroup(name))
}

// FanoutHandler delivers each record to every handler enabled for its level.
type FanoutHandler struct {
	handlers []slog.Handler
}

// Fanout returns a handler writing to all of hs. Nil handlers are skipped.
func Fanout(hs ...slog.Handler) *FanoutHandler {
	handlers := make([]slog.Handler, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	return &FanoutHandler{handlers: handlers}
}

// Enabled implements the slog.Handler interface.
func (f *FanoutHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

// Handle implements the slog.Handler interface. Every enabled handler
// sees the record even if an earlier one fails.
func (f *FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		err := h.Handle(ctx, record.Clone())
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements the slog.Handler interface.
func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: handlers}
}

// WithGroup implements the slog.Handler interface.
func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &FanoutHandler{handlers: handlers}
}

type levelHandler struct {
	level slog.Leveler
	slog.Handler
}

// WithLevel drops records below level before they reach h.
func WithLevel(h slog.Handler, level slog.Leveler) slog.Handler {
	return &levelHandler{level: level, Handler: h}
}

// Enabled implements the slog.Handler interface.
func (h *levelHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level() && h.Handler.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *levelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	return h.Handler.Handle(ctx, record)
}

// WithAttrs implements the slog.Handler interface.
func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return WithLevel(h.Handler.WithAttrs(attrs), h.level)
}

// WithGroup implements the slog.Handler interface.
func (h *levelHandler) WithGroup(name string) slog.Handler {
	return WithLevel(h.Handler.WithGroup(name), h.level)
}
