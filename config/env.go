// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"
)

// Env represents a Source where its underlying values are extracted
// from environment variables sharing a common prefix.
//
// A variable named PREFIX_OTEL_TRACE_BATCHTIMEOUT is applied to the
// path otel.trace.batchtimeout. Keys are matched case-insensitively
// against any previously applied source, so the variable overrides
// otel.trace.batchTimeout from a YAML source.
type Env struct {
	prefix  string
	environ func() []string
}

// EnvOption configures an Env source.
type EnvOption func(*Env)

// Environ overrides where the environment variables are read from.
func Environ(f func() []string) EnvOption {
	return func(e *Env) {
		e.environ = f
	}
}

// FromEnv returns a Source which will apply its config from the
// environment variables starting with prefix followed by an underscore.
func FromEnv(prefix string, opts ...EnvOption) Env {
	e := Env{
		prefix:  strings.ToUpper(prefix) + "_",
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(k, src.prefix)
		if !ok || name == "" {
			continue
		}

		path := strings.Split(strings.ToLower(name), "_")
		if hasEmptySegment(path) {
			continue
		}

		err := store.Set(path, v)
		if err != nil {
			return err
		}
	}
	return nil
}

func hasEmptySegment(path []string) bool {
	for _, p := range path {
		if p == "" {
			return true
		}
	}
	return false
}
