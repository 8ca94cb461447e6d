// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package noop provides do-nothing defaults for optional dependencies.
package noop

import (
	"context"
	"log/slog"
)

// LogHandler discards every record.
type LogHandler struct{}

// Enabled always reports false so callers skip building records.
func (LogHandler) Enabled(context.Context, slog.Level) bool { return false }

func (LogHandler) Handle(context.Context, slog.Record) error { return nil }
func (h LogHandler) WithAttrs([]slog.Attr) slog.Handler     { return h }
func (h LogHandler) WithGroup(string) slog.Handler          { return h }
