package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"localcode/internal/common/fsutil"
	"localcode/internal/config"
	"localcode/internal/hardware"
	"localcode/internal/registry"
	"localcode/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the setup file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved setup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, path, err := resolveSetup(true)
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", path)
		_, err = out.Write(b)
		return err
	},
}

var (
	initModels []string
	initGlobal bool
	initDir    string
	initFormat string
	initForce  bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a setup file without prompting",
	Long: `init writes localcode.<format> into the project directory, or into
~/.config/localcode with --global. Models are given as name or name:quant;
without --model a model is recommended from the detected GPU memory.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	f := configInitCmd.Flags()
	f.StringArrayVar(&initModels, "model", nil, "model as name or name:quant (repeatable)")
	f.BoolVar(&initGlobal, "global", false, "write to ~/.config/localcode instead of the project directory")
	f.StringVar(&initDir, "dir", ".", "project directory")
	f.StringVar(&initFormat, "format", "json", "file format: json, yaml or toml")
	f.BoolVar(&initForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	switch initFormat {
	case "json", "yaml", "toml":
	default:
		return fmt.Errorf("unsupported format %q", initFormat)
	}
	dir := initDir
	if initGlobal {
		g, err := config.GlobalDir()
		if err != nil {
			return err
		}
		dir = g
	}
	dir, err := fsutil.EnsureDir(dir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.FileBase+"."+initFormat)
	if fsutil.PathExists(path) && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	sels := make([]types.ModelSelection, 0, len(initModels))
	for _, m := range initModels {
		sels = append(sels, parseSelection(m))
	}
	out := cmd.OutOrStdout()
	for _, s := range sels {
		if s.Quant == "" && !registry.Known(s.Name) {
			fmt.Fprintf(out, "warning: %q is not in the catalog and has no quantization; %s will be served\n", s.Name, registry.DefaultModel)
		}
	}
	if len(sels) == 0 {
		gpus, gerr := hardware.Probe(zerolog.Nop())
		fmt.Fprintln(out, hardware.Summary(gpus, gerr))
		rec := hardware.Recommend(gpus)
		fmt.Fprintf(out, "Recommended model: %s\n", rec)
		sels = append(sels, types.ModelSelection{Name: rec})
	}

	var cfg config.Config
	cfg.Models = sels
	applyOverrides(&cfg)
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = config.DefaultModelsDir
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", path)
	fmt.Fprintln(out, "Run `localcode start` to boot up the LLM server.")
	return nil
}

// parseSelection splits "name:quant". Only the last colon separates a quant.
func parseSelection(s string) types.ModelSelection {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i > 0 && i < len(s)-1 {
		return types.ModelSelection{Name: s[:i], Quant: s[i+1:]}
	}
	return types.ModelSelection{Name: strings.TrimSuffix(s, ":")}
}
