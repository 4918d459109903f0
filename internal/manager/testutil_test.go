package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// fakeRuntime is an in-memory Runtime used for tests. A failed Run leaves a
// created container behind, like docker does when start fails.
type fakeRuntime struct {
	mu         sync.Mutex
	down       bool
	containers map[string]ContainerState
	runErrs    []error
	runs       []RunSpec
	removes    int
	logs       string
}

func newFakeRuntime(runErrs ...error) *fakeRuntime {
	return &fakeRuntime{containers: map[string]ContainerState{}, runErrs: runErrs}
}

func (f *fakeRuntime) Version(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", runtimeUnavailable("Cannot connect to the Docker daemon")
	}
	return "25.0.5", nil
}

func (f *fakeRuntime) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.down {
		return runtimeUnavailable("Cannot connect to the Docker daemon")
	}
	if _, ok := f.containers[name]; !ok {
		return fmt.Errorf("%w: No such container: %s", ErrContainerNotFound, name)
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) Run(_ context.Context, spec RunSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, spec)
	if _, ok := f.containers[spec.Name]; ok {
		return "", &CommandError{Stderr: "Conflict. The container name \"/" + spec.Name + "\" is already in use", Err: errors.New("exit status 125")}
	}
	if len(f.runErrs) > 0 {
		err := f.runErrs[0]
		f.runErrs = f.runErrs[1:]
		if err != nil {
			f.containers[spec.Name] = ContainerState{Status: "created", Image: spec.Image, GPU: spec.GPU}
			return "", err
		}
	}
	f.containers[spec.Name] = ContainerState{Status: "running", Image: spec.Image, GPU: spec.GPU}
	return "c0ffee", nil
}

func (f *fakeRuntime) Inspect(_ context.Context, name string) (ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.containers[name]
	if !ok {
		return ContainerState{}, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	return st, nil
}

func (f *fakeRuntime) Logs(context.Context, string, int, bool) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.logs)), nil
}

func (f *fakeRuntime) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func (f *fakeRuntime) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[name]
	return ok
}

func gpuDriverError() error {
	return &CommandError{
		Stderr: `docker: Error response from daemon: could not select device driver "" with capabilities: [[gpu]].`,
		Err:    errors.New("exit status 125"),
	}
}

// fakeDockerScript is a shell stand-in for the docker CLI. State lives in
// files under $FAKE_DOCKER_DIR:
//
//	calls      one line per invocation
//	container  present while the container exists; holds its status
//	down       daemon unreachable
//	nogpu      runs with --gpus fail with the driver signature
//	runfail    runs fail with this file's content on stderr
//	logs       output of "docker logs"
const fakeDockerScript = `#!/bin/sh
d="$FAKE_DOCKER_DIR"
echo "$*" >> "$d/calls"
if [ -f "$d/down" ]; then
  echo "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?" >&2
  exit 1
fi
case "$1" in
version)
  echo "25.0.5"
  ;;
rm)
  if [ -f "$d/container" ]; then rm -f "$d/container"; echo "$3"; else echo "Error response from daemon: No such container: $3" >&2; exit 1; fi
  ;;
run)
  if [ -f "$d/container" ]; then echo "docker: Error response from daemon: Conflict. The container name is already in use" >&2; exit 125; fi
  case "$*" in
  *"--gpus all"*)
    if [ -f "$d/nogpu" ]; then
      echo created > "$d/container"
      echo 'docker: Error response from daemon: could not select device driver "" with capabilities: [[gpu]].' >&2
      exit 125
    fi
    ;;
  esac
  if [ -f "$d/runfail" ]; then cat "$d/runfail" >&2; exit 125; fi
  echo running > "$d/container"
  echo "c0ffee"
  ;;
inspect)
  if [ -f "$d/container" ]; then echo "$(cat "$d/container")|0|img|null|"; else echo "Error: No such object: $4" >&2; exit 1; fi
  ;;
logs)
  cat "$d/logs" >&2
  ;;
*)
  echo "unknown command $1" >&2
  exit 1
  ;;
esac
`

// newScriptRuntime installs the fake docker script and returns a CLIRuntime
// using it together with its state directory.
func newScriptRuntime(t *testing.T) (*CLIRuntime, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake docker script needs a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	if err := os.WriteFile(bin, []byte(fakeDockerScript), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	state := filepath.Join(dir, "state")
	if err := os.MkdirAll(state, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return NewCLIRuntime(bin, ExecCommander{Env: []string{"FAKE_DOCKER_DIR=" + state}}), state
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func scriptCalls(t *testing.T, state, verb string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(state, "calls"))
	if err != nil {
		return nil
	}
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if strings.HasPrefix(l, verb+" ") || l == verb {
			out = append(out, l)
		}
	}
	return out
}
