// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config reads and merges configuration from one or more sources
// and decodes the result into a user defined struct.
//
// Sources are applied in order, so later sources override earlier ones:
//
//	m, err := config.Read(
//	    config.FromYaml(config.RenderTextTemplate(defaults, config.TemplateFunc("env", os.Getenv))),
//	    config.FromYaml(config.NewFileReader(os.DirFS("."), "override.yaml", config.IgnoreNotExist())),
//	    config.FromEnv("CALIFORNIA"),
//	)
//
//	var cfg MyConfig
//	err = m.Unmarshal(&cfg)
//
// Struct fields are matched using the `config` tag. Durations may be given as
// strings ("2s") and any [encoding.TextUnmarshaler], e.g. [log/slog.Level], is
// decoded from its text form. Keys are merged case-insensitively so an
// environment variable can override a camelCase YAML key.
package config
