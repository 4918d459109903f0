package download

import (
	"os"

	"github.com/rs/zerolog"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
	DefaultRetryMax = 3
)

// Config controls hub access. Zero values are replaced by defaults.
type Config struct {
	// Endpoint of the hub, without trailing slash.
	Endpoint string
	// Revision to resolve files at.
	Revision string
	// Token is sent as a bearer token when set. Defaults to $HF_TOKEN.
	Token    string
	RetryMax int
	Logger   *zerolog.Logger
	// Publisher receives per-model progress. Defaults to a no-op.
	Publisher ProgressPublisher
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Revision == "" {
		c.Revision = DefaultRevision
	}
	if c.Token == "" {
		c.Token = os.Getenv("HF_TOKEN")
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
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
