// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/z5labs/california/internal/try"

	"gopkg.in/yaml.v3"
)

// Yaml is a Source read from a YAML stream. A stream may hold several
// documents separated by "---"; they are applied in order so a later
// document overrides an earlier one. An empty stream applies nothing.
type Yaml struct {
	r io.Reader
}

// FromYaml returns a source which will apply its config
// from YAML values parsed from the given io.Reader.
func FromYaml(r io.Reader) Yaml {
	return Yaml{r: r}
}

// InvalidYamlError occurs if the underlying io.Reader contains invalid YAML
// or a document which is not a mapping. Document is the zero based index
// of the offending document in the stream.
type InvalidYamlError struct {
	Document int
	Cause    error
}

// Error implements the error interface.
func (e InvalidYamlError) Error() string {
	return fmt.Sprintf("invalid yaml in document %d: %s", e.Document, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidYamlError) Unwrap() error {
	return e.Cause
}

var errNotMapping = errors.New("top level value must be a mapping")

// Apply implements the Source interface.
func (src Yaml) Apply(store Store) (err error) {
	defer try.Close(&err, src.r)

	b, err := io.ReadAll(src.r)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	for i := 0; ; i++ {
		var doc any
		err = dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return InvalidYamlError{Document: i, Cause: err}
		}
		if doc == nil {
			continue
		}

		m, ok := doc.(map[string]any)
		if !ok {
			return InvalidYamlError{Document: i, Cause: errNotMapping}
		}
		err = Map(m).Apply(store)
		if err != nil {
			return err
		}
	}
}
