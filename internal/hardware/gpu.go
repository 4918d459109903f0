// Package hardware probes local accelerators. The result is advisory: the
// container runtime has the final say on whether a GPU launch works.
package hardware

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// GPU describes one NVIDIA device.
type GPU struct {
	Index       int
	Name        string
	MemoryBytes uint64
}

// Probe lists NVIDIA GPUs through NVML. A host without the driver library
// returns an error, not a panic.
func Probe(log zerolog.Logger) ([]GPU, error) {
	ret := nvml.Init()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to initialize NVML: %v", nvml.ErrorString(ret))
	}
	defer func() {
		if shutdownRet := nvml.Shutdown(); shutdownRet != nvml.SUCCESS {
			log.Warn().Str("event", "nvml_shutdown").Msgf("failed to shutdown NVML: %v", nvml.ErrorString(shutdownRet))
		}
	}()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to get device count: %v", nvml.ErrorString(ret))
	}
	gpus := make([]GPU, 0, count)
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("failed to get device handle for GPU %d: %v", i, nvml.ErrorString(ret))
		}
		name, ret := device.GetName()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("failed to get device name for GPU %d: %v", i, nvml.ErrorString(ret))
		}
		g := GPU{Index: i, Name: name}
		if mem, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
			g.MemoryBytes = mem.Total
		}
		gpus = append(gpus, g)
	}
	return gpus, nil
}

// Summary renders a probe result for humans.
func Summary(gpus []GPU, err error) string {
	if err != nil {
		return "no NVIDIA GPU detected (" + err.Error() + "); the server may fall back to CPU"
	}
	if len(gpus) == 0 {
		return "no NVIDIA GPU detected; the server may fall back to CPU"
	}
	parts := make([]string, 0, len(gpus))
	for _, g := range gpus {
		s := fmt.Sprintf("GPU %d: %s", g.Index, g.Name)
		if g.MemoryBytes > 0 {
			s += " (" + humanize.IBytes(g.MemoryBytes) + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// Recommend picks a catalog model sized for the largest GPU's memory.
func Recommend(gpus []GPU) string {
	var best uint64
	for _, g := range gpus {
		if g.MemoryBytes > best {
			best = g.MemoryBytes
		}
	}
	const gib = 1 << 30
	switch {
	case best >= 24*gib:
		return "llama3-70b-instruct"
	case best >= 16*gib:
		return "mixtral-8x7b-instruct"
	case best >= 8*gib:
		return "llama3-8b-instruct"
	default:
		return "phi3-mini"
	}
}
