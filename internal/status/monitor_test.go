package status

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcode/pkg/types"
)

type staticSource struct {
	text   string
	err    error
	tail   int
	follow bool
}

func (s *staticSource) Logs(_ context.Context, _ string, tail int, follow bool) (io.ReadCloser, error) {
	s.tail, s.follow = tail, follow
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.text)), nil
}

// blockingSource yields its lines and then blocks until closed.
type blockingSource struct {
	lines  string
	closed atomic.Bool
}

func (b *blockingSource) Logs(context.Context, string, int, bool) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() { _, _ = pw.Write([]byte(b.lines)) }()
	return &closeNotifier{PipeReader: pr, onClose: func() { b.closed.Store(true) }}, nil
}

type closeNotifier struct {
	*io.PipeReader
	onClose func()
}

func (c *closeNotifier) Close() error {
	c.onClose()
	return c.PipeReader.Close()
}

func collect(t *testing.T, evs <-chan types.PhaseEvent, errs <-chan error) ([]types.PhaseEvent, error) {
	t.Helper()
	var out []types.PhaseEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-evs:
			if !ok {
				return out, <-errs
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out collecting events")
		}
	}
}

func kinds(evs []types.PhaseEvent) []types.PhaseKind {
	out := make([]types.PhaseKind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

func TestWatch_StopsAtReady(t *testing.T) {
	src := &staticSource{text: strings.Join([]string{
		"llama_model_load: loading",
		"",
		"llm_load_print_meta: model type = 8B",
		"HTTP server listening",
		"after ready",
	}, "\n")}
	evs, errs := New(src, Options{}).Watch(context.Background(), "opencode-llm")
	got, err := collect(t, evs, errs)
	require.NoError(t, err)
	assert.Equal(t, []types.PhaseKind{types.PhaseLoadingBuffers, types.PhaseMetaStat, types.PhaseReady}, kinds(got))
	assert.Equal(t, DefaultTail, src.tail)
	assert.True(t, src.follow)
}

func TestWatch_EndOfStreamNoError(t *testing.T) {
	src := &staticSource{text: "ggml_init\nsomething\n"}
	evs, errs := New(src, Options{}).Watch(context.Background(), "x")
	got, err := collect(t, evs, errs)
	require.NoError(t, err)
	assert.Equal(t, []types.PhaseKind{types.PhaseProcessingLayers, types.PhaseGeneric}, kinds(got))
}

func TestWatch_OverlongLineIsTruncated(t *testing.T) {
	long := "blob " + strings.Repeat("x", 2*maxLineBytes)
	src := &staticSource{text: long + "\nHTTP server listening"}
	evs, errs := New(src, Options{}).Watch(context.Background(), "x")
	got, err := collect(t, evs, errs)
	require.NoError(t, err)
	require.Equal(t, []types.PhaseKind{types.PhaseGeneric, types.PhaseReady}, kinds(got))
	assert.True(t, strings.HasPrefix(got[0].Text, "blob x"), got[0].Text)
}

func TestWatch_FollowEmitsTiming(t *testing.T) {
	src := &staticSource{text: "HTTP server listening\nnoise\nllama_print_timings: eval time = 5 ms\n"}
	evs, errs := New(src, Options{Follow: true}).Watch(context.Background(), "x")
	got, err := collect(t, evs, errs)
	require.NoError(t, err)
	require.Equal(t, []types.PhaseKind{types.PhaseReady, types.PhaseTiming}, kinds(got))
	assert.Equal(t, "llama_print_timings: eval time = 5 ms", got[1].Text)
}

func TestWatch_SourceError(t *testing.T) {
	src := &staticSource{err: errors.New("no such container")}
	evs, errs := New(src, Options{}).Watch(context.Background(), "x")
	got, err := collect(t, evs, errs)
	assert.Empty(t, got)
	assert.EqualError(t, err, "no such container")
}

func TestWatch_CancelDetaches(t *testing.T) {
	src := &blockingSource{lines: "llama_model_load: x\n"}
	ctx, cancel := context.WithCancel(context.Background())
	evs, errs := New(src, Options{}).Watch(ctx, "x")

	first := <-evs
	assert.Equal(t, types.PhaseLoadingBuffers, first.Kind)
	cancel()
	_, err := collect(t, evs, errs)
	require.NoError(t, err)
	assert.True(t, src.closed.Load(), "log stream must be closed on cancel")
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	assert.Nil(t, tr.Last())
	ch, cancel := tr.Subscribe(4)
	defer cancel()

	tr.Observe(types.PhaseEvent{Kind: types.PhaseMetaStat, Key: "model type", Value: "8B"})
	tr.Observe(types.PhaseEvent{Kind: types.PhaseReady})

	assert.True(t, tr.Ready())
	assert.Equal(t, map[string]string{"model type": "8B"}, tr.Meta())
	assert.Equal(t, types.PhaseReady, tr.Last().Kind)
	assert.Equal(t, types.PhaseMetaStat, (<-ch).Kind)
	assert.Equal(t, types.PhaseReady, (<-ch).Kind)
}
