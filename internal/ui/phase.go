package ui

import (
	"fmt"
	"io"

	"localcode/pkg/types"
)

// WaitingMessage is shown before the first log line arrives.
const WaitingMessage = "Waiting for container startup logs..."

// highlightedMeta lists the model metadata keys echoed while loading.
var highlightedMeta = map[string]bool{
	"model type":  true,
	"n_ctx_train": true,
}

// PhaseMessage returns the spinner text for ev.
func PhaseMessage(ev types.PhaseEvent) string {
	switch ev.Kind {
	case types.PhaseReady:
		return "Server ready"
	case types.PhaseDownloading:
		return "Downloading model over network..."
	case types.PhaseLoadingBuffers:
		return "Loading buffers into memory..."
	case types.PhaseProcessingLayers:
		return "Processing architecture layers..."
	case types.PhaseComputingCache:
		return "Calculating KV cache memory blocks..."
	case types.PhaseMetaStat:
		return fmt.Sprintf("%s: %s", ev.Key, ev.Value)
	default:
		return fmt.Sprintf("Status: %q", ev.Text)
	}
}

// StatusView drives a Spinner from phase events.
type StatusView struct {
	sp  *Spinner
	out io.Writer
	url string
}

// NewStatusView renders to w; url is announced once the server is ready.
func NewStatusView(w io.Writer, url string, static bool) *StatusView {
	return &StatusView{sp: NewSpinner(w, static), out: w, url: url}
}

func (v *StatusView) Begin() { v.sp.Start(WaitingMessage) }

// Handle renders one event. Metadata keys of interest and timing lines are
// printed as persistent lines; everything else replaces the spinner text.
func (v *StatusView) Handle(ev types.PhaseEvent) {
	switch ev.Kind {
	case types.PhaseReady:
		v.sp.Stop()
		fmt.Fprintf(v.out, "llama.cpp server is actively running on: %s\n", v.url)
	case types.PhaseMetaStat:
		if highlightedMeta[ev.Key] {
			v.sp.Println(fmt.Sprintf("  %s: %s", ev.Key, ev.Value))
		}
	case types.PhaseTiming:
		fmt.Fprintf(v.out, "info %s\n", ev.Text)
	default:
		v.sp.Message(PhaseMessage(ev))
	}
}

// End clears the spinner if still shown.
func (v *StatusView) End() { v.sp.Stop() }
