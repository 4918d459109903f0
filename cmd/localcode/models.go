package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"localcode/internal/registry"
	"localcode/internal/ui"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and weights already downloaded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := resolveSetup(false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := ui.WriteCatalog(out, registry.Catalog()); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nCached in %s:\n", cfg.ModelsDir)
		cached, err := registry.ScanDir(cfg.ModelsDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return ui.WriteCached(out, cached)
	},
}
