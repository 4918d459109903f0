package manager

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	ru := runtimeUnavailable("socket missing")
	if !IsRuntimeUnavailable(fmt.Errorf("wrapped: %w", ru)) {
		t.Fatalf("expected wrapped runtime unavailable")
	}
	if IsRuntimeUnavailable(errors.New("other")) {
		t.Fatalf("unexpected match")
	}

	le := &LaunchFailedError{Stderr: "boom", Image: "img", Fallback: true}
	if !IsLaunchFailed(&StageError{Stage: StageLaunch, Err: le}) {
		t.Fatalf("expected launch failure through StageError")
	}
	if !strings.Contains(le.Error(), "CPU fallback") || !strings.HasSuffix(le.Error(), "boom") {
		t.Fatalf("unexpected message: %s", le.Error())
	}

	if st, ok := FailedStage(fmt.Errorf("x: %w", &StageError{Stage: StageDownload, Err: errors.New("y")})); !ok || st != StageDownload {
		t.Fatalf("unexpected stage %q %v", st, ok)
	}
	if _, ok := FailedStage(errors.New("plain")); ok {
		t.Fatalf("plain errors have no stage")
	}
}

func TestDiagnostic(t *testing.T) {
	ce := &CommandError{Stderr: "daemon said no", Err: errors.New("exit status 1")}
	if Diagnostic(fmt.Errorf("run: %w", ce)) != "daemon said no" {
		t.Fatalf("expected stderr")
	}
	if Diagnostic(&CommandError{Err: errors.New("exit status 1")}) != "exit status 1" {
		t.Fatalf("expected fallback to error text")
	}
	if Diagnostic(nil) != "" {
		t.Fatalf("nil must be empty")
	}
}

func TestClassifyCLIError(t *testing.T) {
	nf := classifyCLIError(&CommandError{Stderr: "Error response from daemon: No such container: opencode-llm", Err: errors.New("exit status 1")})
	if !IsNotFound(nf) {
		t.Fatalf("expected not found, got %v", nf)
	}
	down := classifyCLIError(&CommandError{Stderr: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock.", Err: errors.New("exit status 1")})
	if !IsRuntimeUnavailable(down) {
		t.Fatalf("expected runtime unavailable, got %v", down)
	}
	other := classifyCLIError(&CommandError{Stderr: "something else", Err: errors.New("exit status 1")})
	var ce *CommandError
	if !errors.As(other, &ce) || IsNotFound(other) || IsRuntimeUnavailable(other) {
		t.Fatalf("unexpected classification: %v", other)
	}
}
