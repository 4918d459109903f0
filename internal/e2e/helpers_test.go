package e2e

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"localcode/internal/manager"
)

const (
	repoID   = "bartowski/tiny-GGUF"
	fileName = "tiny-Q4_K_M.gguf"
)

// hubServer serves a single GGUF file the way the model hub does.
type hubServer struct {
	*httptest.Server
	gets atomic.Int32
}

func newHubServer(t *testing.T, content string) *hubServer {
	t.Helper()
	sum := sha256.Sum256([]byte(content))
	etag := hex.EncodeToString(sum[:])
	h := &hubServer{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+repoID+"/resolve/main/"+fileName {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Repo-Commit", "feedbeef")
		w.Header().Set("X-Linked-Etag", `"`+etag+`"`)
		w.Header().Set("X-Linked-Size", strconv.Itoa(len(content)))
		if r.Method == http.MethodGet {
			h.gets.Add(1)
			_, _ = w.Write([]byte(content))
		}
	}))
	t.Cleanup(h.Close)
	return h
}

// dockerScript is a minimal docker CLI stand-in keeping state under
// $FAKE_DOCKER_DIR. A "nogpu" file makes GPU launches fail with the driver
// signature; "logs" holds the server output.
const dockerScript = `#!/bin/sh
d="$FAKE_DOCKER_DIR"
echo "$*" >> "$d/calls"
case "$1" in
version) echo "25.0.5" ;;
rm)
  if [ -f "$d/container" ]; then rm -f "$d/container"; else echo "Error response from daemon: No such container: $3" >&2; exit 1; fi ;;
run)
  if [ -f "$d/container" ]; then echo "docker: Error response from daemon: Conflict." >&2; exit 125; fi
  case "$*" in
  *"--gpus all"*)
    if [ -f "$d/nogpu" ]; then
      echo created > "$d/container"
      echo 'docker: Error response from daemon: could not select device driver "" with capabilities: [[gpu]].' >&2
      exit 125
    fi ;;
  esac
  echo running > "$d/container"
  echo "c0ffee" ;;
inspect)
  if [ -f "$d/container" ]; then echo "$(cat "$d/container")|0|img|null|"; else echo "Error: No such object: $4" >&2; exit 1; fi ;;
logs) cat "$d/logs" >&2 ;;
*) echo "unknown command $1" >&2; exit 1 ;;
esac
`

func newDocker(t *testing.T) (*manager.CLIRuntime, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake docker needs a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	if err := os.WriteFile(bin, []byte(dockerScript), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	state := filepath.Join(dir, "state")
	if err := os.MkdirAll(state, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return manager.NewCLIRuntime(bin, manager.ExecCommander{Env: []string{"FAKE_DOCKER_DIR=" + state}}), state
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// calls returns the recorded docker invocations starting with verb.
func calls(t *testing.T, state, verb string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(state, "calls"))
	if err != nil {
		return nil
	}
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if strings.HasPrefix(l, verb+" ") {
			out = append(out, l)
		}
	}
	return out
}

const serverLog = `main: build = 3000
llama_model_loader: loaded meta data with 26 key-value pairs
llm_load_print_meta: model type       = 8B
llm_load_print_meta: n_ctx_train      = 8192
llama_model_load: using CUDA for GPU acceleration
ggml_cuda_init: found 1 CUDA devices
llama_kv_cache_init:      CUDA0 KV buffer size =  1024.00 MiB
main: HTTP server listening, hostname: 0.0.0.0, port: 8080
llama_print_timings: prompt eval time = 10.00 ms
`
