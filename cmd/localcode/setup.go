package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"localcode/internal/config"
	"localcode/internal/logging"
	"localcode/internal/manager"
)

// resolveSetup loads the setup file and applies flag and environment
// overrides. When required is false a missing file yields defaults.
func resolveSetup(required bool) (config.Config, string, error) {
	path := cfgFile
	var cfg config.Config
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, "", err
		}
		path, err = config.Discover(wd)
		if err != nil && (required || !errors.Is(err, config.ErrNotFound)) {
			return cfg, "", err
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, "", err
		}
	}
	applyOverrides(&cfg)
	cfg, err := cfg.WithDefaults()
	return cfg, path, err
}

func applyOverrides(cfg *config.Config) {
	if v := viper.GetString("runtime"); v != "" {
		cfg.Runtime = v
	}
	if v := viper.GetString("models-dir"); v != "" {
		cfg.ModelsDir = v
	}
	if v := viper.GetInt("port"); v != 0 {
		cfg.Port = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	return logging.New(level, logging.Format(viper.GetString("log-format")))
}

// newRuntime builds the container backend named by kind and a func releasing it.
func newRuntime(kind string) (manager.Runtime, func(), error) {
	switch kind {
	case "", "cli":
		return manager.NewCLIRuntime("", nil), func() {}, nil
	case "engine":
		rt, err := manager.NewEngineRuntime()
		if err != nil {
			return nil, nil, err
		}
		return rt, func() { _ = rt.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown runtime %q (want cli or engine)", kind)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
