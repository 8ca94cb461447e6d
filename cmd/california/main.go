// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/z5labs/california"
	"github.com/z5labs/california/config"
	"github.com/z5labs/california/internal/app"

	"github.com/spf13/cobra"
)

//go:embed config.yaml
var defaultConfig []byte

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, args []string) error {
		return california.Run(cmd.Context(), builder(), configSources(configPath)...)
	}

	root := &cobra.Command{
		Use:          "california",
		Short:        "Serve the otel-california HTTP service",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML file overriding the default config")

	root.AddCommand(&cobra.Command{
		Use:          "serve",
		Short:        "Serve the otel-california HTTP service",
		SilenceUsage: true,
		RunE:         serve,
	})
	return root
}

func builder() california.AppBuilder[app.Config] {
	return california.AppBuilderFunc[app.Config](func(ctx context.Context, cfg app.Config) (california.App, error) {
		return app.Build(ctx, cfg)
	})
}

// configSources layers, in order: the embedded defaults, a YAML file
// and CALIFORNIA_ prefixed environment variables. Without --config the
// file is california.yaml in the working directory, if present.
func configSources(path string) []config.Source {
	env := config.TemplateFunc("env", os.Getenv)

	var file *config.FileReader
	if path == "" {
		file = config.NewFileReader(os.DirFS("."), "california.yaml", config.IgnoreNotExist())
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		file = config.NewFileReader(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
	}

	return []config.Source{
		config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaultConfig), env)),
		config.FromYaml(config.RenderTextTemplate(file, env)),
		config.FromEnv("CALIFORNIA"),
	}
}
