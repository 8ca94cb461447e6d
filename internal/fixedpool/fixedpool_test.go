// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fixedpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/z5labs/california/internal/try"
)

func TestWait(t *testing.T) {
	t.Run("will return nil", func(t *testing.T) {
		t.Run("if there are no tasks", func(t *testing.T) {
			assert.NoError(t, Wait(context.Background()))
		})

		t.Run("if every task succeeds", func(t *testing.T) {
			var n atomic.Int32
			task := func(context.Context) error {
				n.Add(1)
				return nil
			}

			err := Wait(context.Background(), task, task, task)

			require.NoError(t, err)
			assert.Equal(t, int32(3), n.Load())
		})
	})

	t.Run("will cancel the remaining tasks", func(t *testing.T) {
		t.Run("if one task fails", func(t *testing.T) {
			failErr := errors.New("failed")

			blocked := func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(5 * time.Second):
					return errors.New("not cancelled")
				}
			}
			failing := func(context.Context) error {
				return failErr
			}

			err := Wait(context.Background(), blocked, failing)

			assert.ErrorIs(t, err, failErr)
		})
	})

	t.Run("will return a PanicError", func(t *testing.T) {
		t.Run("if a task panics", func(t *testing.T) {
			err := Wait(context.Background(), func(context.Context) error {
				panic("boom")
			})

			var perr try.PanicError
			assert.ErrorAs(t, err, &perr)
		})
	})
}
