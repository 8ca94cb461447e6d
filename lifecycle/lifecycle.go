// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle provides composable actions run at a fixed point
// of a service's life, such as releasing telemetry resources on exit.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Hook is an action performed at a specific point in a service's life.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// HookError attributes a failure to the named [Hook] which returned it.
type HookError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e HookError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e HookError) Unwrap() error {
	return e.Cause
}

type namedHook struct {
	name string
	h    Hook
}

func (nh namedHook) Run(ctx context.Context) error {
	err := nh.h.Run(ctx)
	if err == nil {
		return nil
	}
	return HookError{Name: nh.name, Cause: err}
}

// Named wraps h so its errors are returned as a [HookError] carrying name.
// A nil h stays nil.
func Named(name string, h Hook) Hook {
	if h == nil {
		return nil
	}
	return namedHook{name: name, h: h}
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	var errs []error
	for _, h := range mh {
		if h == nil {
			continue
		}
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiHook returns a [Hook] that runs the provided [Hook]s sequentially.
// A failing hook does not prevent the remaining ones from running and
// all failures are joined in the returned error.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

type concurrentHook []Hook

func (ch concurrentHook) Run(ctx context.Context) error {
	errs := make([]error, len(ch))

	var eg errgroup.Group
	for i, h := range ch {
		if h == nil {
			continue
		}
		eg.Go(func() error {
			errs[i] = h.Run(ctx)
			return nil
		})
	}
	eg.Wait()

	return errors.Join(errs...)
}

// Concurrent returns a [Hook] that runs the provided [Hook]s at the same
// time and waits for all of them. A slow or failing hook never delays
// the start of the others, and all failures are joined.
func Concurrent(hooks ...Hook) Hook {
	return concurrentHook(hooks)
}
