package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"localcode/internal/common/fsutil"
	"localcode/internal/routing"
	"localcode/pkg/types"
)

// Downloader ensures weights are cached before launch.
type Downloader interface {
	EnsureSelections(ctx context.Context, sels []types.ModelSelection, cacheDir string) error
}

// Manager owns no durable state; every call consults the runtime.
type Manager struct {
	cfg Config
}

// New constructs a Manager, applying defaults to unset fields.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg.withDefaults()}
}

// Name is the fixed container name.
func (m *Manager) Name() string { return m.cfg.Name }

// Runtime returns the runtime used by the manager.
func (m *Manager) Runtime() Runtime { return m.cfg.Runtime }

func (m *Manager) publish(name string, fields map[string]any) {
	m.cfg.Publisher.Publish(Event{Name: name, Instance: m.cfg.Name, Fields: fields})
}

// ConfigPath is where Start writes the routing document for modelsDir.
func ConfigPath(modelsDir string) string {
	return filepath.Join(modelsDir, filepath.FromSlash(ConfigRelPath))
}

// Spec builds the GPU launch spec for modelsDir and port.
func (m *Manager) Spec(modelsDir string, port uint16) RunSpec {
	return RunSpec{
		Name:          m.cfg.Name,
		Image:         m.cfg.ImageGPU,
		GPU:           true,
		HostPort:      port,
		ContainerPort: m.cfg.ContainerPort,
		Mounts: []Mount{
			{Source: modelsDir, Target: ModelsMountPath},
			{Source: ConfigPath(modelsDir), Target: ConfigMountPath, ReadOnly: true},
		},
		Env: []string{"HF_HOME=" + ModelsMountPath},
	}
}

// Start launches the server container with cfg routed behind port. Success
// means the runtime accepted the detached launch, not that models are loaded.
// A launch failing on a missing accelerator driver is retried once on CPU.
func (m *Manager) Start(ctx context.Context, cfg routing.Config, modelsDir string, port uint16) error {
	log := m.cfg.Logger
	rt := m.cfg.Runtime
	if port == 0 {
		port = DefaultPort
	}

	version, err := rt.Version(ctx)
	if err != nil {
		if !IsRuntimeUnavailable(err) {
			err = runtimeUnavailable(err.Error())
		}
		log.Error().Err(err).Str("event", "runtime_check").Msg("container runtime unavailable")
		return err
	}
	log.Debug().Str("event", "runtime_check").Str("version", version).Msg("container runtime reachable")

	dir, err := fsutil.EnsureDir(modelsDir)
	if err != nil {
		return err
	}

	m.preclean(ctx)

	cfgPath := ConfigPath(dir)
	if err := routing.Write(cfgPath, cfg); err != nil {
		return fmt.Errorf("write routing config: %w", err)
	}
	m.publish(EventConfigWritten, map[string]any{"path": cfgPath, "models": cfg.Names()})
	log.Info().Str("event", "config_written").Str("path", cfgPath).Strs("models", cfg.Names()).Msg("routing config written")

	spec := m.Spec(dir, port)
	err = m.launch(ctx, spec, "gpu")
	if err == nil {
		return nil
	}
	if IsRuntimeUnavailable(err) {
		return err
	}
	diag := Diagnostic(err)
	if !IsAcceleratorUnavailable(diag) {
		m.publish(EventLaunchFailed, map[string]any{"variant": "gpu", "stderr": diag})
		return &LaunchFailedError{Stderr: diag, Image: spec.Image}
	}

	cpuImage := ""
	if m.cfg.ImageCPU != m.cfg.ImageGPU {
		cpuImage = m.cfg.ImageCPU
	}
	cpu := spec.WithoutGPU(cpuImage)
	fallbacksTotal.Inc()
	m.publish(EventFallback, map[string]any{"stderr": diag, "image": cpu.Image})
	log.Warn().Str("event", "fallback").Str("image", cpu.Image).Str("stderr", diag).
		Msg("GPU not available, falling back to CPU mode (this will be slower)")

	// a failed GPU launch can leave a created container holding the name
	m.preclean(ctx)
	if err := m.launch(ctx, cpu, "cpu"); err != nil {
		if IsRuntimeUnavailable(err) {
			return err
		}
		diag := Diagnostic(err)
		m.publish(EventLaunchFailed, map[string]any{"variant": "cpu", "stderr": diag})
		return &LaunchFailedError{Stderr: diag, Image: cpu.Image, Fallback: true}
	}
	return nil
}

func (m *Manager) launch(ctx context.Context, spec RunSpec, variant string) error {
	m.publish(EventLaunchAttempt, map[string]any{"variant": variant, "image": spec.Image, "port": spec.HostPort})
	m.cfg.Logger.Info().Str("event", "launch_attempt").Str("variant", variant).Str("image", spec.Image).
		Uint16("port", spec.HostPort).Msg("launching server container")
	id, err := m.cfg.Runtime.Run(ctx, spec)
	if err != nil {
		launchAttemptsTotal.WithLabelValues(variant, "error").Inc()
		return err
	}
	launchAttemptsTotal.WithLabelValues(variant, "ok").Inc()
	m.publish(EventLaunched, map[string]any{"variant": variant, "id": id})
	m.cfg.Logger.Info().Str("event", "launched").Str("variant", variant).Str("id", id).Msg("server container launched")
	return nil
}

// preclean removes any previous instance. Failures are ignored.
func (m *Manager) preclean(ctx context.Context) {
	err := m.cfg.Runtime.Remove(ctx, m.cfg.Name)
	m.publish(EventPreclean, map[string]any{"removed": err == nil})
	if err != nil && !IsNotFound(err) {
		m.cfg.Logger.Debug().Err(err).Str("event", "preclean").Msg("pre-launch removal failed; continuing")
	}
}

// Stop force-removes the server container. An absent container is success;
// only an unreachable runtime is returned.
func (m *Manager) Stop(ctx context.Context) error {
	log := m.cfg.Logger
	if _, err := m.cfg.Runtime.Version(ctx); err != nil {
		stopsTotal.WithLabelValues("error").Inc()
		if !IsRuntimeUnavailable(err) {
			err = runtimeUnavailable(err.Error())
		}
		return err
	}
	err := m.cfg.Runtime.Remove(ctx, m.cfg.Name)
	switch {
	case err == nil:
		stopsTotal.WithLabelValues("removed").Inc()
		m.publish(EventStopped, nil)
		log.Info().Str("event", "stopped").Str("name", m.cfg.Name).Msg("server stopped")
		return nil
	case IsRuntimeUnavailable(err):
		stopsTotal.WithLabelValues("error").Inc()
		return err
	default:
		stopsTotal.WithLabelValues("absent").Inc()
		m.publish(EventStopAbsent, map[string]any{"detail": Diagnostic(err)})
		if !IsNotFound(err) {
			log.Warn().Err(err).Str("event", "stop").Msg("remove failed; treating server as absent")
		} else {
			log.Info().Str("event", "stop_absent").Str("name", m.cfg.Name).Msg("no running server found")
		}
		return nil
	}
}

// Probe reconstructs the server state from the runtime.
func (m *Manager) Probe(ctx context.Context) (types.ServerState, error) {
	if _, err := m.cfg.Runtime.Version(ctx); err != nil {
		if !IsRuntimeUnavailable(err) {
			err = runtimeUnavailable(err.Error())
		}
		return types.ServerState{}, err
	}
	st, err := m.cfg.Runtime.Inspect(ctx, m.cfg.Name)
	if err != nil {
		if IsNotFound(err) {
			return types.NotRunning(), nil
		}
		return types.ServerState{}, err
	}
	return StateFromContainer(st), nil
}

// StateFromContainer maps runtime status to ServerState.
func StateFromContainer(st ContainerState) types.ServerState {
	switch st.Status {
	case "running":
		ready := types.Ready()
		ready.GPUAttempt = st.GPU
		return ready
	case "created", "restarting", "paused":
		return types.Starting(st.GPU)
	case "exited", "dead", "removing":
		reason := fmt.Sprintf("container %s (exit code %d)", st.Status, st.ExitCode)
		if st.Error != "" {
			reason += ": " + st.Error
		}
		return types.Failed(reason)
	default:
		return types.NotRunning()
	}
}

// Bootstrap runs the full startup sequence: runtime check, weight download,
// then launch. The returned error is a *StageError naming the failed stage.
func (m *Manager) Bootstrap(ctx context.Context, sels []types.ModelSelection, modelsDir string, port uint16) error {
	if _, err := m.cfg.Runtime.Version(ctx); err != nil {
		if !IsRuntimeUnavailable(err) {
			err = runtimeUnavailable(err.Error())
		}
		return &StageError{Stage: StageRuntime, Err: err}
	}
	dir, err := fsutil.EnsureDir(modelsDir)
	if err != nil {
		return &StageError{Stage: StageDownload, Err: err}
	}
	if m.cfg.Downloader != nil {
		if err := m.cfg.Downloader.EnsureSelections(ctx, sels, dir); err != nil {
			return &StageError{Stage: StageDownload, Err: err}
		}
	}
	if err := m.Start(ctx, routing.Generate(sels), dir, port); err != nil {
		if errors.Is(err, ErrRuntimeUnavailable) {
			return &StageError{Stage: StageRuntime, Err: err}
		}
		return &StageError{Stage: StageLaunch, Err: err}
	}
	return nil
}
