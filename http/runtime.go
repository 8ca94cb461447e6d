// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http runs the service's HTTP server until its context is done.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/california/internal/fixedpool"
	"github.com/z5labs/california/pkg/noop"
	"github.com/z5labs/california/pkg/slogfield"
)

type runtimeOptions struct {
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	logHandler        slog.Handler
}

// RuntimeOption configures a [Runtime].
type RuntimeOption func(*runtimeOptions)

// ReadTimeout sets the maximum duration for reading the entire request.
// The default is 5 seconds.
func ReadTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readTimeout = d
	}
}

// ReadHeaderTimeout sets the maximum duration for reading request headers.
// The default is 2 seconds.
func ReadHeaderTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readHeaderTimeout = d
	}
}

// WriteTimeout sets the maximum duration before timing out writes of the
// response. The default is 10 seconds.
func WriteTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.writeTimeout = d
	}
}

// IdleTimeout sets how long keep-alive connections may sit idle.
// The default is 120 seconds.
func IdleTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.idleTimeout = d
	}
}

// DefaultShutdownTimeout is used when no positive [ShutdownTimeout] is given.
const DefaultShutdownTimeout = 5 * time.Second

// ShutdownTimeout bounds how long in-flight requests may keep running
// once the server starts shutting down. The default is 5 seconds and
// is also used for non-positive durations.
func ShutdownTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.shutdownTimeout = d
	}
}

// LogHandler sets the handler used for server lifecycle logs.
func LogHandler(h slog.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.logHandler = h
	}
}

// Runtime serves HTTP on a listener.
type Runtime struct {
	ls              net.Listener
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// NewRuntime returns a [Runtime] serving h on ln.
func NewRuntime(ln net.Listener, h http.Handler, opts ...RuntimeOption) *Runtime {
	ro := &runtimeOptions{
		readTimeout:       5 * time.Second,
		readHeaderTimeout: 2 * time.Second,
		writeTimeout:      10 * time.Second,
		idleTimeout:       120 * time.Second,
		shutdownTimeout:   DefaultShutdownTimeout,
		logHandler:        noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(ro)
	}
	if ro.shutdownTimeout <= 0 {
		ro.shutdownTimeout = DefaultShutdownTimeout
	}

	log := slog.New(ro.logHandler)
	return &Runtime{
		ls: ln,
		srv: &http.Server{
			Handler:           h,
			ReadTimeout:       ro.readTimeout,
			ReadHeaderTimeout: ro.readHeaderTimeout,
			WriteTimeout:      ro.writeTimeout,
			IdleTimeout:       ro.idleTimeout,
			ErrorLog:          slog.NewLogLogger(ro.logHandler, slog.LevelError),
		},
		shutdownTimeout: ro.shutdownTimeout,
		log:             log,
	}
}

// Addr returns the address the runtime is listening on.
func (rt *Runtime) Addr() net.Addr {
	return rt.ls.Addr()
}

// Run serves until ctx is done and then shuts the server down gracefully.
// A server closed by that shutdown is not reported as an error.
func (rt *Runtime) Run(ctx context.Context) error {
	return fixedpool.Wait(
		ctx,
		func(context.Context) error {
			rt.log.InfoContext(ctx, "listening", slogfield.String("addr", rt.ls.Addr().String()))
			err := rt.srv.Serve(rt.ls)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
		func(poolCtx context.Context) error {
			<-poolCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.shutdownTimeout)
			defer cancel()

			rt.log.InfoContext(ctx, "shutting down http server")
			return rt.srv.Shutdown(shutdownCtx)
		},
	)
}
