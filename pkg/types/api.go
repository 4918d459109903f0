package types

// PhaseKind names a lifecycle phase inferred from a server log line.
type PhaseKind string

const (
	PhaseReady            PhaseKind = "ready"
	PhaseMetaStat         PhaseKind = "meta_stat"
	PhaseDownloading      PhaseKind = "downloading"
	PhaseLoadingBuffers   PhaseKind = "loading_buffers"
	PhaseProcessingLayers PhaseKind = "processing_layers"
	PhaseComputingCache   PhaseKind = "computing_cache"
	PhaseGeneric          PhaseKind = "generic"
	// PhaseTiming is only emitted when following past readiness.
	PhaseTiming PhaseKind = "timing"
)

// PhaseEvent is one classified log line. Only the fields relevant to Kind are set.
type PhaseEvent struct {
	// example: meta_stat
	Kind PhaseKind `json:"kind"`
	// MetaStat key.
	// example: model type
	Key string `json:"key,omitempty"`
	// MetaStat value.
	// example: 8B
	Value string `json:"value,omitempty"`
	// Generic/Timing text.
	Text string `json:"text,omitempty"`
}

// Terminal reports whether no further events are required after e.
func (e PhaseEvent) Terminal() bool { return e.Kind == PhaseReady }

// ServerStatus names the coarse state of the serving container.
type ServerStatus string

const (
	StatusNotRunning ServerStatus = "not_running"
	StatusStarting   ServerStatus = "starting"
	StatusReady      ServerStatus = "ready"
	StatusFailed     ServerStatus = "failed"
)

// ServerState is reconstructed from the container runtime on every call; it is never persisted.
type ServerState struct {
	Status ServerStatus `json:"status"`
	// Set while Status is starting or ready: whether the instance requested accelerators.
	GPUAttempt bool `json:"gpu_attempt,omitempty"`
	// Set when Status is failed.
	Reason string `json:"reason,omitempty"`
}

// NotRunning is the zero-instance state.
func NotRunning() ServerState { return ServerState{Status: StatusNotRunning} }

// Starting builds a starting state.
func Starting(gpu bool) ServerState { return ServerState{Status: StatusStarting, GPUAttempt: gpu} }

// Ready builds a ready state.
func Ready() ServerState { return ServerState{Status: StatusReady} }

// Failed builds a failed state with a reason.
func Failed(reason string) ServerState { return ServerState{Status: StatusFailed, Reason: reason} }

// StatusResponse is returned by GET /status on the local status surface.
type StatusResponse struct {
	// Container instance name.
	// example: opencode-llm
	Instance string `json:"instance"`
	// Current server state probed from the runtime.
	State ServerState `json:"state"`
	// Most recent phase event observed, if any.
	LastPhase *PhaseEvent `json:"last_phase,omitempty"`
	// Metadata pairs collected while the model loads.
	Meta map[string]string `json:"meta,omitempty"`
	// Host port the server is published on.
	// example: 8080
	Port int `json:"port"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: runtime unavailable
	Error string `json:"error"`
	// example: 503
	Code int `json:"code"`
}
