// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readFunc func([]byte) (int, error)

func (f readFunc) Read(b []byte) (int, error) {
	return f(b)
}

func TestTextTemplateRenderer_Read(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying io.Reader fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)
			assert.ErrorIs(t, err, readErr)
		})

		t.Run("if the underlying io.Reader contains an invalid text/template", func(t *testing.T) {
			r := strings.NewReader(`{{ hello`)

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateParseError
			require.ErrorAs(t, err, &ierr)
			assert.NotEmpty(t, ierr.Error())
			assert.Error(t, ierr.Unwrap())
		})

		t.Run("if the parsed text/template fails to execute", func(t *testing.T) {
			r := strings.NewReader(`{{ hello }}`)

			ttr := RenderTextTemplate(
				r,
				TemplateFunc("hello", func() string {
					panic("ahhhh")
				}),
			)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateExecError
			require.ErrorAs(t, err, &ierr)
			assert.NotEmpty(t, ierr.Error())
			assert.Error(t, ierr.Unwrap())
		})
	})

	t.Run("will render template funcs", func(t *testing.T) {
		t.Run("if they are registered with TemplateFunc", func(t *testing.T) {
			r := strings.NewReader(`endpoint: {{ env "OTEL_EXPORTER_OTLP_ENDPOINT" }}`)

			ttr := RenderTextTemplate(
				r,
				TemplateFunc("env", func(name string) string {
					return "collector:4317"
				}),
			)
			b, err := io.ReadAll(ttr)
			require.NoError(t, err)
			assert.Equal(t, "endpoint: collector:4317", string(b))
		})
	})
}
