// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides [slog.Attr] constructors with the attribute
// keys shared by every log record this service emits.
package slogfield

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// HTTPMethod records the request method.
func HTTPMethod(r *http.Request) slog.Attr {
	return slog.String("http.method", r.Method)
}

// HTTPPath records the request path without its query.
func HTTPPath(r *http.Request) slog.Attr {
	return slog.String("http.path", r.URL.Path)
}

// HTTPStatusCode records the response status.
func HTTPStatusCode(code int) slog.Attr {
	return slog.Int("http.status_code", code)
}

// Elapsed records how long an operation took.
func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration("elapsed", d)
}

// Signal records the OS signal that triggered an action.
func Signal(sig os.Signal) slog.Attr {
	return slog.String("signal", sig.String())
}
