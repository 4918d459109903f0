// Package manager starts, probes, and stops the containerized inference
// server. It is structured into small files by concern:
//
//   - manager.go: Manager type with Start, Stop, Probe, and Bootstrap.
//   - config.go: Config and package defaults; New applies defaults.
//   - runtime.go: Runtime interface, RunSpec, and container state.
//   - runtime_cli.go: docker CLI backend driven through a Commander.
//   - runtime_engine.go: Docker Engine API backend.
//   - fallback.go: accelerator-unavailable detection.
//   - errors.go: error types and helpers (IsRuntimeUnavailable, IsLaunchFailed).
//   - events.go: lifecycle event publishing and an in-memory recorder.
//   - metrics.go: Prometheus counters.
//
// The container runtime is the only source of truth. The fixed container
// name makes the server a single system-wide instance, enforced by removing
// any previous instance before each launch.
package manager
