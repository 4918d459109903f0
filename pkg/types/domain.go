package types

import "strings"

// ModelSelection identifies one model the user wants served.
type ModelSelection struct {
	// Model identifier, either a catalog name or a "publisher/model" reference.
	// example: llama3-8b-instruct
	Name string `json:"name" yaml:"name" toml:"name"`
	// Optional quantization tag. Empty means "use the static catalog".
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" yaml:"quant,omitempty" toml:"quant,omitempty"`
}

// HasQuant reports whether a quantization tag was supplied.
func (s ModelSelection) HasQuant() bool { return strings.TrimSpace(s.Quant) != "" }

// DownloadTarget is the resolved download source for one selection.
type DownloadTarget struct {
	// Hugging Face repository reference. Empty for catalog entries stored as URLs.
	// example: bartowski/llama3-8b-instruct-GGUF
	RepoID string `json:"repo_id"`
	// File inside RepoID, or a full URL when RepoID is empty.
	// example: llama3-8b-instruct-Q4_K_M.gguf
	FileRef string `json:"file_ref,omitempty"`
}

// IsURL reports whether the target is the legacy full-URL form, which is an
// opaque resource handle and not a cache key.
func (t DownloadTarget) IsURL() bool { return t.RepoID == "" && t.FileRef != "" }

// Model represents a weight file already present on disk.
type Model struct {
	// File name of the weights, used as the identifier.
	// example: llama3-8b-instruct-Q4_K_M.gguf
	ID string `json:"id"`
	// Absolute path to the model file on disk.
	// example: /home/user/.opencode/models/hub/models--bartowski--llama3-8b-instruct-GGUF/snapshots/main/llama3-8b-instruct-Q4_K_M.gguf
	Path string `json:"path"`
	// Size in bytes.
	Size int64 `json:"size"`
	// Repository the file was fetched from when it lives in the hub cache.
	// example: bartowski/llama3-8b-instruct-GGUF
	RepoID string `json:"repo_id,omitempty"`
}
