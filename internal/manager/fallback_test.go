package manager

import "testing"

func TestIsAcceleratorUnavailable(t *testing.T) {
	yes := []string{
		`docker: Error response from daemon: could not select device driver "" with capabilities: [[gpu]].`,
		"nvidia-container-cli: initialization error: load library failed",
		"failed to create shim task: NVIDIA driver not loaded",
	}
	no := []string{
		"Bind for 0.0.0.0:8080 failed: port is already allocated",
		"pull access denied for ghcr.io/mostlygeek/llama-swap",
		"",
	}
	for _, s := range yes {
		if !IsAcceleratorUnavailable(s) {
			t.Fatalf("expected match: %q", s)
		}
	}
	for _, s := range no {
		if IsAcceleratorUnavailable(s) {
			t.Fatalf("unexpected match: %q", s)
		}
	}
}
