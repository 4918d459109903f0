package manager

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// EngineRuntime talks to the Docker Engine API directly.
type EngineRuntime struct {
	cli *client.Client
}

// NewEngineRuntime connects using DOCKER_HOST and friends from the
// environment, plus any extra options.
func NewEngineRuntime(opts ...client.Opt) (*EngineRuntime, error) {
	all := append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, opts...)
	cli, err := client.NewClientWithOpts(all...)
	if err != nil {
		return nil, runtimeUnavailable(err.Error())
	}
	return &EngineRuntime{cli: cli}, nil
}

// Close releases the API client.
func (r *EngineRuntime) Close() error { return r.cli.Close() }

func (r *EngineRuntime) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case client.IsErrConnectionFailed(err):
		return runtimeUnavailable(err.Error())
	case client.IsErrNotFound(err):
		return fmt.Errorf("%w: %s", ErrContainerNotFound, err.Error())
	default:
		return err
	}
}

// wrapLaunch keeps daemon diagnostics verbatim; a missing image or name
// during a launch is a launch failure, not an absent container.
func (r *EngineRuntime) wrapLaunch(err error) error {
	if err != nil && client.IsErrConnectionFailed(err) {
		return runtimeUnavailable(err.Error())
	}
	return err
}

func (r *EngineRuntime) Version(ctx context.Context) (string, error) {
	v, err := r.cli.ServerVersion(ctx)
	if err != nil {
		return "", runtimeUnavailable(err.Error())
	}
	return v.Version, nil
}

func (r *EngineRuntime) Remove(ctx context.Context, name string) error {
	return r.wrap(r.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}))
}

func (r *EngineRuntime) ensureImage(ctx context.Context, ref string) error {
	if _, _, err := r.cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}
	rc, err := r.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return r.wrapLaunch(err)
	}
	defer rc.Close()
	// errors arrive inside the progress stream with a 200 status
	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	return nil
}

// engineConfig renders spec as Engine API create parameters.
func engineConfig(spec RunSpec) (*container.Config, *container.HostConfig, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(int(spec.ContainerPort)))
	if err != nil {
		return nil, nil, err
	}
	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Cmd:          spec.Args,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	host := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: strconv.Itoa(int(spec.HostPort))}},
		},
	}
	for _, m := range spec.Mounts {
		host.Mounts = append(host.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	if spec.GPU {
		host.DeviceRequests = []container.DeviceRequest{
			{Count: -1, Capabilities: [][]string{{"gpu"}}},
		}
	}
	return cfg, host, nil
}

func (r *EngineRuntime) Run(ctx context.Context, spec RunSpec) (string, error) {
	if err := r.ensureImage(ctx, spec.Image); err != nil {
		return "", err
	}
	cfg, host, err := engineConfig(spec)
	if err != nil {
		return "", err
	}
	resp, err := r.cli.ContainerCreate(ctx, cfg, host, nil, nil, spec.Name)
	if err != nil {
		return "", r.wrapLaunch(err)
	}
	// a failed start leaves the container created; the manager removes it before retrying
	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", r.wrapLaunch(err)
	}
	return resp.ID, nil
}

func (r *EngineRuntime) Inspect(ctx context.Context, name string) (ContainerState, error) {
	info, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		return ContainerState{}, r.wrap(err)
	}
	st := ContainerState{}
	if info.State != nil {
		st.Status = info.State.Status
		st.ExitCode = info.State.ExitCode
		st.Error = info.State.Error
	}
	if info.Config != nil {
		st.Image = info.Config.Image
	}
	if info.HostConfig != nil {
		st.GPU = len(info.HostConfig.DeviceRequests) > 0
	}
	return st, nil
}

func (r *EngineRuntime) Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	rc, err := r.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	// demultiplex stdout and stderr frames into one stream
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		pw.CloseWithError(err)
	}()
	return &demuxReader{PipeReader: pr, src: rc}, nil
}

type demuxReader struct {
	*io.PipeReader
	src io.Closer
}

func (d *demuxReader) Close() error {
	err := d.src.Close()
	_ = d.PipeReader.Close()
	return err
}
