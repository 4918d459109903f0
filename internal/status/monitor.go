package status

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"localcode/pkg/types"
)

// DefaultTail bounds the backlog read when attaching.
const DefaultTail = 50

// LogSource streams a container's logs. manager.Runtime satisfies it.
type LogSource interface {
	Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error)
}

// Options tune a Monitor.
type Options struct {
	Tail int
	// Follow keeps reading after Ready and emits Timing events.
	Follow bool
	Logger *zerolog.Logger
}

// Monitor watches a server's logs. Watching never affects the server.
type Monitor struct {
	src  LogSource
	opts Options
}

// New returns a Monitor reading from src.
func New(src LogSource, opts Options) *Monitor {
	if opts.Tail <= 0 {
		opts.Tail = DefaultTail
	}
	if opts.Logger == nil {
		l := zerolog.Nop()
		opts.Logger = &l
	}
	return &Monitor{src: src, opts: opts}
}

// Watch attaches to the named container's log stream and emits one event per
// non-empty line. The events channel closes when the stream ends, when Ready
// is seen (unless following), or when ctx is cancelled. At most one error is
// sent on the error channel, which closes together with events.
func (m *Monitor) Watch(ctx context.Context, name string) (<-chan types.PhaseEvent, <-chan error) {
	events := make(chan types.PhaseEvent)
	errs := make(chan error, 1)
	log := m.opts.Logger

	rc, err := m.src.Logs(ctx, name, m.opts.Tail, true)
	if err != nil {
		errs <- err
		close(events)
		close(errs)
		return events, errs
	}

	var once sync.Once
	detach := func() { once.Do(func() { _ = rc.Close() }) }
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			detach()
		case <-stop:
		}
	}()

	go func() {
		defer close(errs)
		defer close(events)
		defer close(stop)
		defer detach()

		emit := func(ev types.PhaseEvent) bool {
			phaseEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ready := false
		// handle reports false when the watch should end.
		handle := func(line string) bool {
			if ready {
				if ev, ok := classifyTiming(line); ok {
					return emit(ev)
				}
				return true
			}
			ev, ok := Classify(line)
			if !ok {
				return true
			}
			if !emit(ev) {
				return false
			}
			if ev.Terminal() {
				log.Info().Str("event", "ready").Str("name", name).Msg("server ready")
				if !m.opts.Follow {
					return false
				}
				ready = true
			}
			return true
		}

		br := bufio.NewReaderSize(rc, 64*1024)
		for {
			line, err := readLine(br)
			if (err == nil || line != "") && !handle(line) {
				return
			}
			if err == nil {
				continue
			}
			if err != io.EOF && ctx.Err() == nil {
				log.Debug().Err(err).Str("name", name).Msg("log stream ended with error")
				errs <- err
			}
			return
		}
	}()
	return events, errs
}

// maxLineBytes bounds how much of one log line is kept; the rest is dropped.
const maxLineBytes = 1 << 20

// readLine returns the next line without its terminator, truncated to
// maxLineBytes. A final unterminated line is returned along with io.EOF.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		frag, err := br.ReadSlice('\n')
		if room := maxLineBytes - len(buf); room > 0 {
			buf = append(buf, frag[:min(len(frag), room)]...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return strings.TrimRight(string(buf), "\r\n"), err
	}
}
