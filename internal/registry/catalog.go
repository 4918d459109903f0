package registry

import "strings"

// DefaultModel is served when a name without quantization is not in the catalog.
const DefaultModel = "llama3-8b-instruct"

// Entry is one statically known model and the URL of its weights.
type Entry struct {
	Name string
	URL  string
}

var catalog = []Entry{
	{Name: "llama3-70b-instruct", URL: "https://huggingface.co/lmstudio-community/Meta-Llama-3-70B-Instruct-GGUF/resolve/main/Meta-Llama-3-70B-Instruct-Q4_K_M.gguf"},
	{Name: "mixtral-8x7b-instruct", URL: "https://huggingface.co/TheBloke/Mixtral-8x7B-Instruct-v0.1-GGUF/resolve/main/mixtral-8x7b-instruct-v0.1.Q4_K_M.gguf"},
	{Name: "llama3-8b-instruct", URL: "https://huggingface.co/lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF/resolve/main/Meta-Llama-3-8B-Instruct-Q4_K_M.gguf"},
	{Name: "phi3-mini", URL: "https://huggingface.co/microsoft/Phi-3-mini-4k-instruct-gguf/resolve/main/Phi-3-mini-4k-instruct-q4.gguf"},
	{Name: "gemma-2b-it", URL: "https://huggingface.co/google/gemma-2b-it-GGUF/resolve/main/2b-it-v1.1-q4_k_m.gguf"},
	{Name: "qwen2-7b-instruct", URL: "https://huggingface.co/Qwen/Qwen2-7B-Instruct-GGUF/resolve/main/qwen2-7b-instruct-q4_k_m.gguf"},
	{Name: "mistral-7b-instruct", URL: "https://huggingface.co/TheBloke/Mistral-7B-Instruct-v0.2-GGUF/resolve/main/mistral-7b-instruct-v0.2.Q4_K_M.gguf"},
}

// Catalog returns a copy of the static catalog in its fixed order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether name is an exact catalog identifier.
func Known(name string) bool {
	_, ok := lookup(name)
	return ok
}

func lookup(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func defaultEntry() Entry {
	e, _ := lookup(DefaultModel)
	return e
}

// RepoFromURL extracts "<org>/<repo>" and the file name from a hub resolve
// URL of the form https://host/<org>/<repo>/resolve/<rev>/<file>.
// ok is false when the URL does not have that shape.
func RepoFromURL(u string) (repo, file string, ok bool) {
	i := strings.Index(u, "://")
	if i < 0 {
		return "", "", false
	}
	parts := strings.Split(u[i+3:], "/")
	// host, org, repo, "resolve", rev, file...
	if len(parts) < 6 || parts[3] != "resolve" {
		return "", "", false
	}
	return parts[1] + "/" + parts[2], strings.Join(parts[5:], "/"), true
}
