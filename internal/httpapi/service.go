package httpapi

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"localcode/internal/registry"
	"localcode/internal/status"
	"localcode/pkg/types"
)

// Prober reports the state of the serving instance.
type Prober interface {
	Name() string
	Probe(ctx context.Context) (types.ServerState, error)
}

// StatusService implements Service on top of a Prober and a status.Tracker.
type StatusService struct {
	prober    Prober
	tracker   *status.Tracker
	modelsDir string
	port      int
	now       func() time.Time
}

func NewStatusService(p Prober, t *status.Tracker, modelsDir string, port int) *StatusService {
	if t == nil {
		t = status.NewTracker()
	}
	return &StatusService{prober: p, tracker: t, modelsDir: modelsDir, port: port, now: time.Now}
}

func (s *StatusService) ListModels() ([]types.Model, error) {
	models, err := registry.ScanDir(s.modelsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.Model{}, nil
	}
	return models, err
}

// Status probes the runtime and merges in what the tracker has seen.
// A running container is reported as starting until the log shows readiness.
func (s *StatusService) Status(ctx context.Context) (types.StatusResponse, error) {
	st, err := s.prober.Probe(ctx)
	if err != nil {
		return types.StatusResponse{}, err
	}
	if st.Status == types.StatusReady && !s.tracker.Ready() && s.tracker.Last() != nil {
		st = types.Starting(st.GPUAttempt)
	}
	return types.StatusResponse{
		Instance:       s.prober.Name(),
		State:          st,
		LastPhase:      s.tracker.Last(),
		Meta:           s.tracker.Meta(),
		Port:           s.port,
		ServerTimeUnix: s.now().Unix(),
	}, nil
}

func (s *StatusService) Ready() bool { return s.tracker.Ready() }

func (s *StatusService) Subscribe(buf int) (<-chan types.PhaseEvent, func()) {
	return s.tracker.Subscribe(buf)
}
