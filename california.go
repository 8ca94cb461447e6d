// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package california

import (
	"context"
	"fmt"

	"github.com/z5labs/california/config"
	"github.com/z5labs/california/internal/try"
)

// App is a fully wired service, ready to run until its context is done.
type App interface {
	Run(context.Context) error
}

// AppFunc is a functional implementation of the App interface.
type AppFunc func(context.Context) error

// Run implements the App interface.
func (f AppFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// AppBuilder wires an App from its decoded config.
type AppBuilder[T any] interface {
	Build(ctx context.Context, cfg T) (App, error)
}

// AppBuilderFunc is a functional implementation of
// the AppBuilder interface.
type AppBuilderFunc[T any] func(context.Context, T) (App, error)

// Build implements the AppBuilder interface.
func (f AppBuilderFunc[T]) Build(ctx context.Context, cfg T) (App, error) {
	return f(ctx, cfg)
}

// Stage identifies the step of [Run] which failed.
type Stage int

const (
	StageConfigRead Stage = iota + 1
	StageConfigUnmarshal
	StageBuild
	StageRun
)

func (s Stage) String() string {
	switch s {
	case StageConfigRead:
		return "read config"
	case StageConfigUnmarshal:
		return "unmarshal config"
	case StageBuild:
		return "build app"
	case StageRun:
		return "run app"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError is returned by [Run] and records which stage failed.
//
// Telemetry initialization failures surface as a [StageBuild] error,
// so the service refuses to start instead of running half wired.
type StageError struct {
	Stage Stage
	Cause error
}

// Error implements the [builtin.error] interface.
func (e StageError) Error() string {
	return fmt.Sprintf("failed to %s: %s", e.Stage, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e StageError) Unwrap() error {
	return e.Cause
}

// Run merges the config sources, decodes them into T, builds the
// [App] with builder and runs it. A panic in any stage is recovered
// and returned as an error.
func Run[T any](ctx context.Context, builder AppBuilder[T], srcs ...config.Source) (err error) {
	defer try.Recover(&err)

	m, err := config.Read(srcs...)
	if err != nil {
		return StageError{Stage: StageConfigRead, Cause: err}
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return StageError{Stage: StageConfigUnmarshal, Cause: err}
	}

	app, err := builder.Build(ctx, cfg)
	if err != nil {
		return StageError{Stage: StageBuild, Cause: err}
	}

	err = app.Run(ctx)
	if err != nil {
		return StageError{Stage: StageRun, Cause: err}
	}
	return nil
}
