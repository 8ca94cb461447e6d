// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYaml_Apply(t *testing.T) {
	t.Run("will apply every document in order", func(t *testing.T) {
		t.Run("if the stream holds more than one document", func(t *testing.T) {
			m, err := Read(FromYaml(strings.NewReader(`
service:
  name: first
shutdown:
  timeout: 1s
---
---
service:
  name: second
`)))
			require.NoError(t, err)

			var cfg testConfig
			require.NoError(t, m.Unmarshal(&cfg))

			assert.Equal(t, "second", cfg.Service.Name)
			assert.Equal(t, "1s", cfg.Shutdown.Timeout.String())
		})
	})

	t.Run("will apply nothing", func(t *testing.T) {
		t.Run("if the stream is empty", func(t *testing.T) {
			m, err := Read(
				Map{"service": map[string]any{"name": "kept"}},
				FromYaml(strings.NewReader("")),
			)
			require.NoError(t, err)

			var cfg testConfig
			require.NoError(t, m.Unmarshal(&cfg))

			assert.Equal(t, "kept", cfg.Service.Name)
		})
	})

	t.Run("will return an InvalidYamlError", func(t *testing.T) {
		t.Run("if a document is not a mapping", func(t *testing.T) {
			_, err := Read(FromYaml(strings.NewReader("service:\n  name: a\n---\n- not\n- a map\n")))

			var yerr InvalidYamlError
			require.ErrorAs(t, err, &yerr)
			assert.Equal(t, 1, yerr.Document)
			assert.ErrorIs(t, err, errNotMapping)
		})
	})

	t.Run("will return the read error unchanged", func(t *testing.T) {
		t.Run("if the underlying reader fails", func(t *testing.T) {
			readErr := errors.New("read failed")

			_, err := Read(FromYaml(iotest.ErrReader(readErr)))

			assert.ErrorIs(t, err, readErr)
			var yerr InvalidYamlError
			assert.False(t, errors.As(err, &yerr))
		})
	})
}
