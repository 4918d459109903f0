package manager

import (
	"errors"
	"fmt"
)

// ErrRuntimeUnavailable means the container engine cannot be reached. It is
// fatal and never retried.
var ErrRuntimeUnavailable = errors.New("container runtime unavailable")

func runtimeUnavailable(detail string) error {
	return fmt.Errorf("%w: %s", ErrRuntimeUnavailable, detail)
}

// IsRuntimeUnavailable reports whether err wraps ErrRuntimeUnavailable.
func IsRuntimeUnavailable(err error) bool { return errors.Is(err, ErrRuntimeUnavailable) }

// ErrContainerNotFound is returned by runtimes when the named container is absent.
var ErrContainerNotFound = errors.New("container not found")

// IsNotFound reports whether err wraps ErrContainerNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrContainerNotFound) }

// LaunchFailedError carries the runtime's diagnostic text verbatim.
type LaunchFailedError struct {
	Stderr string
	Image  string
	// Fallback is true when the failure happened on the CPU retry.
	Fallback bool
}

func (e *LaunchFailedError) Error() string {
	if e.Fallback {
		return fmt.Sprintf("container launch failed on CPU fallback (image %s). Ensure ports are not in use.\n%s", e.Image, e.Stderr)
	}
	return fmt.Sprintf("container launch failed (image %s). Ensure ports are not in use.\n%s", e.Image, e.Stderr)
}

// IsLaunchFailed reports whether err is or wraps a LaunchFailedError.
func IsLaunchFailed(err error) bool {
	var le *LaunchFailedError
	return errors.As(err, &le)
}

// Stage names the step of Bootstrap that failed.
type Stage string

const (
	StageRuntime  Stage = "runtime"
	StageDownload Stage = "download"
	StageLaunch   Stage = "launch"
)

// StageError tells the caller which startup stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage of a StageError in err's chain.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// CommandError is a failed runtime command with its captured stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// Diagnostic returns the runtime's own text for err: stderr for command
// failures, the error message otherwise.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var ce *CommandError
	if errors.As(err, &ce) && ce.Stderr != "" {
		return ce.Stderr
	}
	return err.Error()
}
