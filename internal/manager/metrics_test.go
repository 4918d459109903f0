package manager

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_FallbackAndStops(t *testing.T) {
	fb := testutil.ToFloat64(fallbacksTotal)
	gpuErr := testutil.ToFloat64(launchAttemptsTotal.WithLabelValues("gpu", "error"))
	cpuOK := testutil.ToFloat64(launchAttemptsTotal.WithLabelValues("cpu", "ok"))
	absent := testutil.ToFloat64(stopsTotal.WithLabelValues("absent"))

	rt := newFakeRuntime(gpuDriverError())
	m := New(Config{Runtime: rt})
	if err := m.Start(context.Background(), testConfig(), t.TempDir(), 8080); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	if got := testutil.ToFloat64(fallbacksTotal) - fb; got != 1 {
		t.Fatalf("fallbacks delta = %v", got)
	}
	if got := testutil.ToFloat64(launchAttemptsTotal.WithLabelValues("gpu", "error")) - gpuErr; got != 1 {
		t.Fatalf("gpu errors delta = %v", got)
	}
	if got := testutil.ToFloat64(launchAttemptsTotal.WithLabelValues("cpu", "ok")) - cpuOK; got != 1 {
		t.Fatalf("cpu ok delta = %v", got)
	}
	if got := testutil.ToFloat64(stopsTotal.WithLabelValues("absent")) - absent; got != 1 {
		t.Fatalf("absent stops delta = %v", got)
	}
}
