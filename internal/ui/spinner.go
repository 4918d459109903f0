// Package ui renders startup progress for the terminal: a spinner for
// server phases, byte bars for downloads and plain tables for listings.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

const spinnerTemplate pb.ProgressBarTemplate = `{{cycle . "⠁" "⠂" "⠄" "⡀" "⢀" "⠠" "⠐" "⠈"}} {{string . "msg"}}`

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"

// syncWriter serializes writes from the bar refresher and Println.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Spinner is a single-line activity indicator with a replaceable message.
type Spinner struct {
	out     *syncWriter
	bar     *pb.ProgressBar
	static  bool
	mu      sync.Mutex
	started bool
}

// NewSpinner builds a spinner writing to w. A static spinner only redraws
// on Message and Println, which keeps output deterministic for pipes.
func NewSpinner(w io.Writer, static bool) *Spinner {
	out := &syncWriter{w: w}
	bar := spinnerTemplate.New(0)
	bar.SetWriter(out)
	bar.SetRefreshRate(120 * time.Millisecond)
	bar.Set(pb.Static, static)
	bar.Set(pb.Terminal, !static)
	return &Spinner{out: out, bar: bar, static: static}
}

// Start shows the spinner with msg.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Set("msg", msg)
	if !s.started {
		s.bar.Start()
		s.started = true
	}
	s.redraw()
}

// Message replaces the spinner text.
func (s *Spinner) Message(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Set("msg", msg)
	s.redraw()
}

// Println prints line above the spinner.
func (s *Spinner) Println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, clearLine+line+"\n")
	s.redraw()
}

// Stop removes the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.bar.Finish()
	fmt.Fprint(s.out, clearLine)
}

func (s *Spinner) redraw() {
	if s.started && s.static {
		s.bar.Write()
	}
}
