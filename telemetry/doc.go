// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package telemetry holds the trace, metric and log providers of a
// running service and controls when they become available and when
// they are torn down.
//
// Reads of the registry state never block. Set and Clear are
// serialized so concurrent callers observe exactly one transition.
package telemetry
