package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"localcode/internal/download"
	"localcode/internal/routing"
	"localcode/pkg/types"
)

func testConfig() routing.Config {
	return routing.Generate([]types.ModelSelection{
		{Name: "llama3-8b-instruct", Quant: "Q4_K_M"},
		{Name: "qwen2.5-coder-1.5b-instruct", Quant: "Q8_0"},
	})
}

func TestStart_GPUSuccess(t *testing.T) {
	rt := newFakeRuntime()
	pub := NewMemoryPublisher()
	m := New(Config{Runtime: rt, Publisher: pub})
	dir := t.TempDir()

	if err := m.Start(context.Background(), testConfig(), dir, 9090); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.runCount() != 1 {
		t.Fatalf("expected one launch, got %d", rt.runCount())
	}
	spec := rt.runs[0]
	if !spec.GPU || spec.Image != DefaultImageGPU || spec.HostPort != 9090 || spec.ContainerPort != 8080 || spec.Name != DefaultName {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Mounts[0].Source != dir || spec.Mounts[0].Target != "/models" || spec.Mounts[1].Target != "/app/config.yaml" {
		t.Fatalf("unexpected mounts: %+v", spec.Mounts)
	}
	if spec.Env[0] != "HF_HOME=/models" {
		t.Fatalf("unexpected env: %v", spec.Env)
	}
	got, err := routing.Read(ConfigPath(dir))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if len(got.Models) != 2 || got.Models[0].Name != "llama3-8b-instruct" {
		t.Fatalf("unexpected persisted config: %+v", got)
	}
	for _, n := range pub.Names() {
		if n == EventFallback {
			t.Fatalf("no fallback expected on success")
		}
	}
}

func TestStart_FallbackRetriesExactlyOnce(t *testing.T) {
	rt := newFakeRuntime(gpuDriverError())
	pub := NewMemoryPublisher()
	m := New(Config{Runtime: rt, Publisher: pub})

	if err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.runCount() != 2 {
		t.Fatalf("expected exactly 2 launches, got %d", rt.runCount())
	}
	cpu := rt.runs[1]
	if cpu.GPU || cpu.Image != DefaultImageCPU {
		t.Fatalf("retry must drop GPU and use CPU image: %+v", cpu)
	}
	// the fallback is announced before the retry
	names := pub.Names()
	fb, second := -1, -1
	for i, n := range names {
		if n == EventFallback && fb < 0 {
			fb = i
		}
		if n == EventLaunchAttempt {
			second = i
		}
	}
	if fb < 0 || fb > second {
		t.Fatalf("fallback not announced before retry: %v", names)
	}
}

func TestStart_FallbackSameImageWhenNoCPUVariant(t *testing.T) {
	rt := newFakeRuntime(gpuDriverError())
	m := New(Config{Runtime: rt, ImageGPU: "img:one", ImageCPU: "img:one"})
	if err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.runs[1].Image != "img:one" || rt.runs[1].GPU {
		t.Fatalf("unexpected retry spec: %+v", rt.runs[1])
	}
}

func TestStart_SecondFailureIsFatal(t *testing.T) {
	rt := newFakeRuntime(gpuDriverError(), &CommandError{Stderr: "port is already allocated", Err: errors.New("exit status 125")})
	m := New(Config{Runtime: rt})
	err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080)
	var le *LaunchFailedError
	if !errors.As(err, &le) {
		t.Fatalf("expected LaunchFailedError, got %v", err)
	}
	if !le.Fallback || le.Stderr != "port is already allocated" {
		t.Fatalf("unexpected error: %+v", le)
	}
	if rt.runCount() != 2 {
		t.Fatalf("expected 2 launches, got %d", rt.runCount())
	}
}

func TestStart_OtherFailureNoRetry(t *testing.T) {
	rt := newFakeRuntime(&CommandError{Stderr: "Bind for 0.0.0.0:8080 failed: port is already allocated", Err: errors.New("exit status 125")})
	pub := NewMemoryPublisher()
	m := New(Config{Runtime: rt, Publisher: pub})
	err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080)
	if !IsLaunchFailed(err) {
		t.Fatalf("expected launch failure, got %v", err)
	}
	var le *LaunchFailedError
	errors.As(err, &le)
	if le.Fallback || le.Stderr != "Bind for 0.0.0.0:8080 failed: port is already allocated" {
		t.Fatalf("stderr must be verbatim: %+v", le)
	}
	if rt.runCount() != 1 {
		t.Fatalf("expected no retry, got %d launches", rt.runCount())
	}
}

func TestStart_RuntimeUnavailable(t *testing.T) {
	rt := newFakeRuntime()
	rt.down = true
	m := New(Config{Runtime: rt})
	err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080)
	if !IsRuntimeUnavailable(err) {
		t.Fatalf("expected runtime unavailable, got %v", err)
	}
	if rt.runCount() != 0 || rt.removes != 0 {
		t.Fatalf("nothing should run when runtime is down")
	}
}

func TestStart_PrecleansPreviousInstance(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers[DefaultName] = ContainerState{Status: "exited"}
	m := New(Config{Runtime: rt})
	if err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st, _ := rt.Inspect(context.Background(), DefaultName); st.Status != "running" {
		t.Fatalf("expected fresh running container, got %+v", st)
	}
}

func TestStartStop_LeavesNoInstance(t *testing.T) {
	for _, tc := range []struct {
		name string
		errs []error
	}{
		{"gpu", nil},
		{"fallback", []error{gpuDriverError()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt := newFakeRuntime(tc.errs...)
			m := New(Config{Runtime: rt})
			ctx := context.Background()
			if err := m.Start(ctx, testConfig(), t.TempDir(), 8080); err != nil {
				t.Fatalf("start: %v", err)
			}
			if err := m.Stop(ctx); err != nil {
				t.Fatalf("stop: %v", err)
			}
			if rt.has(DefaultName) {
				t.Fatalf("container still present after stop")
			}
		})
	}
}

func TestStop_Idempotent(t *testing.T) {
	rt := newFakeRuntime()
	pub := NewMemoryPublisher()
	m := New(Config{Runtime: rt, Publisher: pub})
	for i := 0; i < 2; i++ {
		if err := m.Stop(context.Background()); err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
	}
	if got := pub.Names(); len(got) != 2 || got[0] != EventStopAbsent {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestStop_RuntimeUnavailableSurfaced(t *testing.T) {
	rt := newFakeRuntime()
	rt.down = true
	if err := New(Config{Runtime: rt}).Stop(context.Background()); !IsRuntimeUnavailable(err) {
		t.Fatalf("expected runtime unavailable, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	rt := newFakeRuntime()
	m := New(Config{Runtime: rt})
	ctx := context.Background()
	st, err := m.Probe(ctx)
	if err != nil || st.Status != types.StatusNotRunning {
		t.Fatalf("expected not running, got %+v %v", st, err)
	}
	rt.containers[DefaultName] = ContainerState{Status: "created", GPU: true}
	if st, _ := m.Probe(ctx); st.Status != types.StatusStarting || !st.GPUAttempt {
		t.Fatalf("expected starting gpu, got %+v", st)
	}
	rt.containers[DefaultName] = ContainerState{Status: "running"}
	if st, _ := m.Probe(ctx); st.Status != types.StatusReady || st.GPUAttempt {
		t.Fatalf("expected ready on cpu, got %+v", st)
	}
	rt.containers[DefaultName] = ContainerState{Status: "running", GPU: true}
	if st, _ := m.Probe(ctx); st.Status != types.StatusReady || !st.GPUAttempt {
		t.Fatalf("expected ready on gpu, got %+v", st)
	}
	rt.containers[DefaultName] = ContainerState{Status: "exited", ExitCode: 137, Error: "OOMKilled"}
	if st, _ := m.Probe(ctx); st.Status != types.StatusFailed || st.Reason != "container exited (exit code 137): OOMKilled" {
		t.Fatalf("expected failed, got %+v", st)
	}
	rt.down = true
	if _, err := m.Probe(ctx); !IsRuntimeUnavailable(err) {
		t.Fatalf("expected runtime unavailable, got %v", err)
	}
}

type fakeDownloader struct {
	err   error
	calls int
}

func (f *fakeDownloader) EnsureSelections(context.Context, []types.ModelSelection, string) error {
	f.calls++
	return f.err
}

func TestBootstrap_Stages(t *testing.T) {
	sels := []types.ModelSelection{{Name: "phi3-mini"}}
	ctx := context.Background()

	t.Run("runtime", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.down = true
		dl := &fakeDownloader{}
		err := New(Config{Runtime: rt, Downloader: dl}).Bootstrap(ctx, sels, t.TempDir(), 8080)
		if st, ok := FailedStage(err); !ok || st != StageRuntime {
			t.Fatalf("expected runtime stage, got %v", err)
		}
		if dl.calls != 0 {
			t.Fatalf("downloads must not start without a runtime")
		}
	})

	t.Run("download", func(t *testing.T) {
		rt := newFakeRuntime()
		dl := &fakeDownloader{err: &download.DownloadFailedError{Model: "phi3-mini", Cause: errors.New("timeout")}}
		err := New(Config{Runtime: rt, Downloader: dl}).Bootstrap(ctx, sels, t.TempDir(), 8080)
		if st, ok := FailedStage(err); !ok || st != StageDownload {
			t.Fatalf("expected download stage, got %v", err)
		}
		if !download.IsDownloadFailed(err) {
			t.Fatalf("cause must be preserved: %v", err)
		}
		if rt.runCount() != 0 {
			t.Fatalf("container must not start after a download failure")
		}
	})

	t.Run("launch", func(t *testing.T) {
		rt := newFakeRuntime(&CommandError{Stderr: "pull access denied", Err: errors.New("exit status 125")})
		err := New(Config{Runtime: rt, Downloader: &fakeDownloader{}}).Bootstrap(ctx, sels, t.TempDir(), 8080)
		if st, ok := FailedStage(err); !ok || st != StageLaunch {
			t.Fatalf("expected launch stage, got %v", err)
		}
		if !IsLaunchFailed(err) {
			t.Fatalf("expected launch failure in chain: %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		rt := newFakeRuntime()
		dir := filepath.Join(t.TempDir(), "models")
		dl := &fakeDownloader{}
		if err := New(Config{Runtime: rt, Downloader: dl}).Bootstrap(ctx, sels, dir, 8080); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		if _, err := os.Stat(ConfigPath(dir)); err != nil {
			t.Fatalf("config not written: %v", err)
		}
		if dl.calls != 1 || rt.runCount() != 1 {
			t.Fatalf("unexpected calls: downloads=%d runs=%d", dl.calls, rt.runCount())
		}
	})
}
