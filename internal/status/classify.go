// Package status turns the server container's log stream into lifecycle
// phase events.
package status

import (
	"strings"

	"localcode/pkg/types"
)

// GenericWidth is the number of runes kept for unclassified lines.
const GenericWidth = 40

var (
	readyMarkers  = []string{"HTTP server listening", "listening on"}
	metaPrefixes  = []string{"llm_load_print_meta:", "print_info:"}
	timingMarkers = []string{"llama_print_timings", "prompt eval time"}
)

type rule struct {
	kind  types.PhaseKind
	match func(line string) (types.PhaseEvent, bool)
}

func contains(kind types.PhaseKind, sub string) rule {
	return rule{kind: kind, match: func(line string) (types.PhaseEvent, bool) {
		return types.PhaseEvent{Kind: kind}, strings.Contains(line, sub)
	}}
}

// rules are evaluated top to bottom; the first match wins.
var rules = []rule{
	{kind: types.PhaseReady, match: func(line string) (types.PhaseEvent, bool) {
		for _, m := range readyMarkers {
			if strings.Contains(line, m) {
				return types.PhaseEvent{Kind: types.PhaseReady}, true
			}
		}
		return types.PhaseEvent{}, false
	}},
	{kind: types.PhaseMetaStat, match: metaStat},
	contains(types.PhaseDownloading, "downloading"),
	contains(types.PhaseLoadingBuffers, "llama_model_load"),
	contains(types.PhaseProcessingLayers, "ggml_"),
	contains(types.PhaseComputingCache, "llama_kv_cache_init:"),
}

func metaStat(line string) (types.PhaseEvent, bool) {
	for _, p := range metaPrefixes {
		if !strings.Contains(line, p) {
			continue
		}
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			return types.PhaseEvent{}, false
		}
		return types.PhaseEvent{
			Kind:  types.PhaseMetaStat,
			Key:   strings.TrimSpace(strings.Replace(parts[0], p, "", 1)),
			Value: strings.TrimSpace(parts[1]),
		}, true
	}
	return types.PhaseEvent{}, false
}

// Classify maps one log line to a phase event. ok is false for blank lines;
// every other line yields exactly one event, Generic when nothing else matches.
func Classify(line string) (ev types.PhaseEvent, ok bool) {
	t := strings.TrimSpace(line)
	if t == "" {
		return types.PhaseEvent{}, false
	}
	for _, r := range rules {
		if ev, ok := r.match(t); ok {
			return ev, true
		}
	}
	return types.PhaseEvent{Kind: types.PhaseGeneric, Text: truncate(t, GenericWidth)}, true
}

// classifyTiming recognizes per-request timing lines printed after readiness.
func classifyTiming(line string) (types.PhaseEvent, bool) {
	t := strings.TrimSpace(line)
	for _, m := range timingMarkers {
		if strings.Contains(t, m) {
			return types.PhaseEvent{Kind: types.PhaseTiming, Text: t}, true
		}
	}
	return types.PhaseEvent{}, false
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
