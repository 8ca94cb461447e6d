// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"strings"
)

// EmptyKeyError occurs when a source sets a value without a key.
type EmptyKeyError struct {
	Value any
}

// Error implements the error interface.
func (e EmptyKeyError) Error() string {
	return fmt.Sprintf("attempted to set value to an empty key: %v", e.Value)
}

// UnexpectedKeyValueTypeError represents the situation when
// a source tries nesting a key under a key which was previously
// set to a non map value.
type UnexpectedKeyValueTypeError struct {
	Key          string
	ExpectedType string
}

// Error implements the error interface.
func (e UnexpectedKeyValueTypeError) Error() string {
	return fmt.Sprintf("expected key value to be a %s: %s", e.ExpectedType, e.Key)
}

// inMemoryStore merges keys case-insensitively. The first source
// to set a key decides its spelling.
type inMemoryStore map[string]any

// Set implements the Store interface.
func (m inMemoryStore) Set(path []string, v any) error {
	if len(path) == 0 {
		return EmptyKeyError{Value: v}
	}
	return set(m, path, path, v)
}

func set(m map[string]any, full, path []string, v any) error {
	key := resolveKey(m, path[0])
	if len(path) == 1 {
		m[key] = v
		return nil
	}

	old, ok := m[key]
	if !ok || old == nil {
		old = make(map[string]any)
		m[key] = old
	}

	sub, ok := old.(map[string]any)
	if !ok {
		return UnexpectedKeyValueTypeError{
			Key:          strings.Join(full[:len(full)-len(path)+1], "."),
			ExpectedType: "map[string]any",
		}
	}
	return set(sub, full, path[1:], v)
}

func resolveKey(m map[string]any, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}
