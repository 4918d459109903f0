package manager

import (
	"context"
	"io"
)

// Mount binds a host path into the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunSpec describes a detached container launch.
type RunSpec struct {
	Name  string
	Image string
	// GPU requests all available accelerator devices.
	GPU           bool
	HostPort      uint16
	ContainerPort uint16
	Mounts        []Mount
	// Env entries in KEY=VALUE form.
	Env  []string
	Args []string
}

// WithoutGPU returns a copy with the accelerator request removed and image
// replaced when a distinct one is given.
func (s RunSpec) WithoutGPU(image string) RunSpec {
	s.GPU = false
	if image != "" {
		s.Image = image
	}
	s.Mounts = append([]Mount(nil), s.Mounts...)
	s.Env = append([]string(nil), s.Env...)
	s.Args = append([]string(nil), s.Args...)
	return s
}

// ContainerState is what the runtime reports about a container.
type ContainerState struct {
	// Status as reported by the runtime: created, running, restarting,
	// paused, exited, dead.
	Status   string
	ExitCode int
	Error    string
	Image    string
	GPU      bool
}

// Runtime is a container engine. Implementations return errors wrapping
// ErrRuntimeUnavailable when the engine cannot be reached and
// ErrContainerNotFound when the named container is absent.
type Runtime interface {
	// Version checks the engine is reachable and returns its version.
	Version(ctx context.Context) (string, error)
	// Remove force-removes the named container.
	Remove(ctx context.Context, name string) error
	// Run launches a detached container and returns its ID.
	Run(ctx context.Context, spec RunSpec) (string, error)
	Inspect(ctx context.Context, name string) (ContainerState, error)
	// Logs streams the container's combined stdout and stderr, starting with
	// the last tail lines. Closing the reader detaches without affecting the
	// container.
	Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error)
}
