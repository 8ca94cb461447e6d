// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fixedpool runs a fixed set of tasks to completion.
package fixedpool

import (
	"context"
	"errors"
	"sync"

	"github.com/z5labs/california/internal/try"
)

// Task is a unit of work run by [Wait].
type Task func(context.Context) error

// Wait runs every task on its own goroutine and blocks until all return.
// The first failing task cancels the context shared by the others.
// Panics are reported as [try.PanicError].
func Wait(ctx context.Context, tasks ...Task) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			err := try.Do(func() error { return task(ctx) })
			if err == nil {
				return
			}

			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			cancel(err)
		}(task)
	}
	wg.Wait()

	return errors.Join(errs...)
}
