// Package routing generates the llama-swap configuration that launches and
// groups the selected models behind a single endpoint.
package routing

import (
	"fmt"
	"strings"

	"localcode/internal/registry"
	"localcode/pkg/types"
)

const (
	// ServerBinary is the llama.cpp server inside the container image.
	ServerBinary = "/app/llama-server"
	// PortToken is substituted by llama-swap with the port it assigns.
	PortToken = "${PORT}"
	// PersistentGroup names the group of small, always-resident models.
	PersistentGroup = "autocomplete"
	// ContextSize passed to every model.
	ContextSize = 8192
)

var persistentMarkers = []string{"mini", "coder", "1.5b", "2b", "0.5b"}

// Model is one routed model and its launch command.
type Model struct {
	Name string
	Cmd  string
}

// Group describes a llama-swap group.
type Group struct {
	Name       string
	Persistent bool
	Swap       bool
	Exclusive  bool
	Members    []string
}

// Config is the routing document. Models keep input order.
type Config struct {
	Models []Model
	Groups []Group
}

// IsPersistent reports whether a model should stay resident in the
// autocomplete group. Matching is a case-insensitive substring test.
func IsPersistent(name string) bool {
	n := strings.ToLower(name)
	for _, m := range persistentMarkers {
		if strings.Contains(n, m) {
			return true
		}
	}
	return false
}

// Command builds the launch line for a resolved target. Flags whose value is
// empty are omitted entirely.
func Command(t types.DownloadTarget) string {
	args := []string{ServerBinary, "--port", PortToken}
	if t.RepoID != "" {
		args = append(args, "--hf-repo", t.RepoID)
	}
	if t.FileRef != "" {
		args = append(args, "--hf-file", t.FileRef)
	}
	args = append(args, "--ctx-size", fmt.Sprint(ContextSize), "--host", "0.0.0.0")
	return strings.Join(args, " ")
}

// Generate builds the routing config for selections in order.
func Generate(sels []types.ModelSelection) Config {
	var cfg Config
	var members []string
	for _, s := range sels {
		cfg.Models = append(cfg.Models, Model{Name: s.Name, Cmd: Command(registry.Resolve(s))})
		if IsPersistent(s.Name) {
			members = append(members, s.Name)
		}
	}
	if len(members) > 0 {
		cfg.Groups = append(cfg.Groups, Group{
			Name:       PersistentGroup,
			Persistent: true,
			Swap:       false,
			Exclusive:  false,
			Members:    members,
		})
	}
	return cfg
}

// Names lists the routed model names in order.
func (c Config) Names() []string {
	out := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, m.Name)
	}
	return out
}

// Lookup returns the command for name.
func (c Config) Lookup(name string) (string, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m.Cmd, true
		}
	}
	return "", false
}
