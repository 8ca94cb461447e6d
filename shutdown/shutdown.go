// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shutdown tears telemetry down within a fixed time budget once
// the process is asked to stop.
//
// The flush of buffered telemetry may block for as long as the collector
// takes to respond and cannot be interrupted. It therefore runs on its
// own goroutine and a [Coordinator] only waits for it up to the
// configured timeout. A flush still running when the timeout fires is
// abandoned.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/z5labs/california/internal/try"
	"github.com/z5labs/california/pkg/noop"
	"github.com/z5labs/california/pkg/slogfield"
	"github.com/z5labs/california/telemetry"
)

// DefaultTimeout bounds how long the flush is awaited.
const DefaultTimeout = 2 * time.Second

// ErrTimedOut is returned by [Coordinator.Run] when the flush did not
// finish within the timeout.
var ErrTimedOut = errors.New("shutdown: telemetry flush timed out")

// ErrAlreadyStarted is returned by a second call to [Coordinator.Run].
var ErrAlreadyStarted = errors.New("shutdown: coordinator already started")

// State is the position of a [Coordinator] in the shutdown sequence.
type State int32

const (
	Running State = iota
	SignalReceived
	Draining
	Flushed
	TimedOut
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case SignalReceived:
		return "signal_received"
	case Draining:
		return "draining"
	case Flushed:
		return "flushed"
	case TimedOut:
		return "timed_out"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Telemetry is what the coordinator flushes and then releases.
// [telemetry.Registry] implements it.
type Telemetry interface {
	// Shutdown blocks until every buffered signal has been exported.
	Shutdown(context.Context) error

	// Clear makes telemetry unavailable for the rest of the process.
	Clear() error
}

type options struct {
	timeout  time.Duration
	signals  []os.Signal
	log      slog.Handler
	onSignal []func()
}

// Option configures a [Coordinator].
type Option func(*options)

// Timeout sets the flush budget. Non-positive values select [DefaultTimeout].
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Signals replaces the signals that trigger shutdown.
// The default is SIGINT and SIGTERM.
func Signals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// LogHandler sets where shutdown progress is logged.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.log = h
	}
}

// OnSignal registers f to run as soon as shutdown is triggered and
// before the flush starts. It may be given multiple times.
func OnSignal(f func()) Option {
	return func(o *options) {
		o.onSignal = append(o.onSignal, f)
	}
}

// Coordinator drives the shutdown sequence.
type Coordinator struct {
	telemetry Telemetry
	timeout   time.Duration
	signals   []os.Signal
	log       *slog.Logger
	onSignal  []func()

	started atomic.Bool
	state   atomic.Int32
}

// NewCoordinator returns a [Coordinator] in the [Running] state.
func NewCoordinator(t Telemetry, opts ...Option) *Coordinator {
	o := &options{
		timeout: DefaultTimeout,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		log:     noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	return &Coordinator{
		telemetry: t,
		timeout:   o.timeout,
		signals:   o.signals,
		log:       slog.New(o.log),
		onSignal:  o.onSignal,
	}
}

// State returns the current position in the shutdown sequence.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// Run waits for a shutdown signal or for ctx to be done, then flushes
// and clears telemetry. It returns the outcome of the flush, either
// [Flushed] or [TimedOut], along with the flush error if there was one.
// The coordinator is [Terminated] when Run returns.
func (c *Coordinator) Run(ctx context.Context) (State, error) {
	if !c.started.CompareAndSwap(false, true) {
		return c.State(), ErrAlreadyStarted
	}

	c.wait(ctx)

	for _, f := range c.onSignal {
		err := try.Do(func() error {
			f()
			return nil
		})
		if err != nil {
			c.log.ErrorContext(ctx, "shutdown hook failed", slogfield.Error(err))
		}
	}

	outcome, err := c.drain(ctx)

	cerr := try.Do(c.telemetry.Clear)
	if cerr != nil && !errors.Is(cerr, telemetry.ErrAlreadyCleared) {
		c.log.WarnContext(ctx, "failed to clear telemetry", slogfield.Error(cerr))
	}

	c.setState(Terminated)
	return outcome, err
}

func (c *Coordinator) wait(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	if len(c.signals) > 0 {
		signal.Notify(sigCh, c.signals...)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		c.setState(SignalReceived)
		c.log.WarnContext(ctx, "signal received, starting graceful shutdown", slogfield.Signal(sig))
	case <-ctx.Done():
		c.setState(SignalReceived)
		c.log.InfoContext(ctx, "context done, starting graceful shutdown", slogfield.Error(context.Cause(ctx)))
	}
}

// Drain flushes telemetry and waits at most the configured timeout for
// it to finish. It does not clear telemetry.
func (c *Coordinator) Drain(ctx context.Context) State {
	s, _ := c.drain(ctx)
	return s
}

func (c *Coordinator) drain(ctx context.Context) (State, error) {
	c.setState(Draining)

	flushCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- try.Do(func() error {
			return c.telemetry.Shutdown(flushCtx)
		})
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		c.setState(Flushed)
		if err == nil || errors.Is(err, telemetry.ErrUnavailable) {
			c.log.InfoContext(ctx, "telemetry flushed", slogfield.Elapsed(time.Since(start)))
			return Flushed, nil
		}
		c.log.ErrorContext(ctx, "failed to flush telemetry", slogfield.Error(err))
		return Flushed, err
	case <-timer.C:
		c.setState(TimedOut)
		c.log.ErrorContext(
			ctx,
			"failed to shutdown OpenTelemetry",
			slogfield.Duration("timeout", c.timeout),
		)
		return TimedOut, ErrTimedOut
	}
}
