package manager

import (
	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultName          = "opencode-llm"
	DefaultImageGPU      = "ghcr.io/mostlygeek/llama-swap:cuda"
	DefaultImageCPU      = "ghcr.io/mostlygeek/llama-swap:cpu"
	DefaultContainerPort = 8080
	DefaultPort          = 8080

	// ConfigRelPath is where the routing document is written under the models dir.
	ConfigRelPath = ".localcode/llama-swap.yaml"
	// ConfigMountPath is where the routing document appears inside the container.
	ConfigMountPath = "/app/config.yaml"
	// ModelsMountPath is where the models dir appears inside the container.
	ModelsMountPath = "/models"
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Runtime Runtime
	// Name of the single server container.
	Name          string
	ImageGPU      string
	ImageCPU      string
	ContainerPort uint16
	// Downloader is used by Bootstrap. Optional for Start/Stop.
	Downloader Downloader
	Logger     *zerolog.Logger
	Publisher  EventPublisher
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ImageGPU == "" {
		c.ImageGPU = DefaultImageGPU
	}
	if c.ImageCPU == "" {
		c.ImageCPU = DefaultImageCPU
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = DefaultContainerPort
	}
	if c.Runtime == nil {
		c.Runtime = NewCLIRuntime("", nil)
	}
	if c.Logger == nil {
		l := zerolog.Nop()
		c.Logger = &l
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
