package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"localcode/internal/common/fsutil"
	"localcode/pkg/types"
)

// Defaults applied by WithDefaults.
const (
	DefaultModelsDir = "~/.opencode/models"
	DefaultPort      = 8080
	DefaultRuntime   = "cli"
	// FileBase is the config file name without extension.
	FileBase = "localcode"
)

// ErrNotFound is returned by Discover when no setup file exists.
var ErrNotFound = errors.New("configuration not found; run `localcode config init` first")

// Config is the resolved setup.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Models      []types.ModelSelection `json:"models" yaml:"models" toml:"models"`
	ModelsDir   string                 `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Port        int                    `json:"port" yaml:"port" toml:"port"`
	RunInDocker *bool                  `json:"run_in_docker,omitempty" yaml:"run_in_docker,omitempty" toml:"run_in_docker,omitempty"`
	// Runtime selects the container backend: "cli" or "engine".
	Runtime    string `json:"runtime,omitempty" yaml:"runtime,omitempty" toml:"runtime,omitempty"`
	ImageGPU   string `json:"image_gpu,omitempty" yaml:"image_gpu,omitempty" toml:"image_gpu,omitempty"`
	ImageCPU   string `json:"image_cpu,omitempty" yaml:"image_cpu,omitempty" toml:"image_cpu,omitempty"`
	HFEndpoint string `json:"hf_endpoint,omitempty" yaml:"hf_endpoint,omitempty" toml:"hf_endpoint,omitempty"`
	LogLevel   string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
}

// Docker reports whether the server runs in a container. Unset means true.
func (c Config) Docker() bool { return c.RunInDocker == nil || *c.RunInDocker }

// WithDefaults fills unset fields and expands '~' in ModelsDir.
func (c Config) WithDefaults() (Config, error) {
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	dir, err := fsutil.ExpandHome(c.ModelsDir)
	if err != nil {
		return c, err
	}
	c.ModelsDir = dir
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Runtime == "" {
		c.Runtime = DefaultRuntime
	}
	return c, nil
}

// Validate checks the fields the server start depends on.
func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("no models configured")
	}
	for i, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("models[%d]: empty name", i)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Runtime {
	case "", "cli", "engine":
	default:
		return fmt.Errorf("unknown runtime %q (want cli or engine)", c.Runtime)
	}
	return nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, encoding by extension.
func Save(path string, cfg Config) error {
	var (
		b   []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(cfg)
	case ".json":
		b, err = json.MarshalIndent(cfg, "", "  ")
	case ".toml":
		b, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}

var extensions = []string{".json", ".yaml", ".yml", ".toml"}

// GlobalDir is ~/.config/localcode.
func GlobalDir() (string, error) {
	return fsutil.ExpandHome("~/.config/localcode")
}

// Discover returns the first setup file found in projectDir, then in the
// global directory. It returns ErrNotFound when neither has one.
func Discover(projectDir string) (string, error) {
	dirs := []string{projectDir}
	if g, err := GlobalDir(); err == nil {
		dirs = append(dirs, g)
	}
	for _, d := range dirs {
		for _, ext := range extensions {
			p := filepath.Join(d, FileBase+ext)
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p, nil
			}
		}
	}
	return "", ErrNotFound
}
