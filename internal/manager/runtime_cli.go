package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Commander runs external commands. It exists so tests can substitute the binary.
type Commander interface {
	// Output runs name to completion and returns its stdout and stderr.
	Output(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
	// Stream starts name and returns its merged stdout and stderr. Closing the
	// reader stops the process.
	Stream(ctx context.Context, name string, args ...string) (io.ReadCloser, error)
}

// ExecCommander runs commands with os/exec.
type ExecCommander struct {
	// Env entries appended to the inherited environment.
	Env []string
}

func (c ExecCommander) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), c.Env...)
	return cmd
}

func (c ExecCommander) Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := c.command(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (c ExecCommander) Stream(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := c.command(ctx, name, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	go func() {
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			pw.CloseWithError(fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err))
			return
		}
		pw.Close()
	}()
	return &procReader{PipeReader: pr, cancel: cancel}, nil
}

type procReader struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (p *procReader) Close() error {
	p.cancel()
	return p.PipeReader.Close()
}

// CLIRuntime drives the docker command line.
type CLIRuntime struct {
	Binary string
	Cmd    Commander
}

// NewCLIRuntime returns a CLIRuntime. Empty binary means "docker"; nil cmd
// means ExecCommander.
func NewCLIRuntime(binary string, cmd Commander) *CLIRuntime {
	if binary == "" {
		binary = "docker"
	}
	if cmd == nil {
		cmd = ExecCommander{}
	}
	return &CLIRuntime{Binary: binary, Cmd: cmd}
}

func (r *CLIRuntime) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := r.Cmd.Output(ctx, r.Binary, args...)
	if err != nil {
		return "", classifyCLIError(&CommandError{Args: args, Stderr: strings.TrimSpace(string(stderr)), Err: err})
	}
	return strings.TrimSpace(string(stdout)), nil
}

var (
	daemonDownMarkers = []string{"cannot connect to the docker daemon", "is the docker daemon running", "error during connect"}
	notFoundMarkers   = []string{"no such container", "no such object"}
)

func classifyCLIError(ce *CommandError) error {
	if errors.Is(ce.Err, exec.ErrNotFound) || errors.Is(ce.Err, os.ErrNotExist) {
		return runtimeUnavailable(ce.Err.Error())
	}
	low := strings.ToLower(ce.Stderr)
	for _, m := range daemonDownMarkers {
		if strings.Contains(low, m) {
			return runtimeUnavailable(ce.Stderr)
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(low, m) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, ce.Stderr)
		}
	}
	return ce
}

func (r *CLIRuntime) Version(ctx context.Context) (string, error) {
	v, err := r.run(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		// an unclassified failure still means the daemon did not answer
		if !IsRuntimeUnavailable(err) {
			return "", runtimeUnavailable(Diagnostic(err))
		}
		return "", err
	}
	return v, nil
}

func (r *CLIRuntime) Remove(ctx context.Context, name string) error {
	_, err := r.run(ctx, "rm", "-f", name)
	return err
}

// RunArgs renders spec as docker run arguments.
func RunArgs(spec RunSpec) []string {
	args := []string{"run", "-d", "--name", spec.Name}
	if spec.GPU {
		args = append(args, "--gpus", "all")
	}
	args = append(args, "-p", fmt.Sprintf("%d:%d", spec.HostPort, spec.ContainerPort))
	for _, m := range spec.Mounts {
		v := m.Source + ":" + m.Target
		if m.ReadOnly {
			v += ":ro"
		}
		args = append(args, "-v", v)
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	args = append(args, spec.Image)
	return append(args, spec.Args...)
}

func (r *CLIRuntime) Run(ctx context.Context, spec RunSpec) (string, error) {
	return r.run(ctx, RunArgs(spec)...)
}

const inspectFormat = `{{.State.Status}}|{{.State.ExitCode}}|{{.Config.Image}}|{{json .HostConfig.DeviceRequests}}|{{.State.Error}}`

func (r *CLIRuntime) Inspect(ctx context.Context, name string) (ContainerState, error) {
	out, err := r.run(ctx, "inspect", "-f", inspectFormat, name)
	if err != nil {
		return ContainerState{}, err
	}
	return parseInspect(out)
}

func parseInspect(out string) (ContainerState, error) {
	parts := strings.SplitN(out, "|", 5)
	if len(parts) != 5 {
		return ContainerState{}, fmt.Errorf("unexpected inspect output: %q", out)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return ContainerState{}, fmt.Errorf("exit code %q: %w", parts[1], err)
	}
	var reqs []json.RawMessage
	_ = json.Unmarshal([]byte(parts[3]), &reqs)
	return ContainerState{
		Status:   parts[0],
		ExitCode: code,
		Image:    parts[2],
		GPU:      len(reqs) > 0,
		Error:    parts[4],
	}, nil
}

func (r *CLIRuntime) Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	args = append(args, "--tail", strconv.Itoa(tail), name)
	rc, err := r.Cmd.Stream(ctx, r.Binary, args...)
	if err != nil {
		return nil, classifyCLIError(&CommandError{Args: args, Err: err})
	}
	return rc, nil
}
