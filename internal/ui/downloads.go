package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"localcode/internal/download"
)

const downloadTemplate pb.ProgressBarTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`

// DownloadView renders download progress as one byte bar per model.
// It implements download.ProgressPublisher.
type DownloadView struct {
	mu     sync.Mutex
	out    *syncWriter
	static bool
	bars   map[string]*pb.ProgressBar
}

func NewDownloadView(w io.Writer, static bool) *DownloadView {
	return &DownloadView{out: &syncWriter{w: w}, static: static, bars: map[string]*pb.ProgressBar{}}
}

func (v *DownloadView) Publish(p download.Progress) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch p.State {
	case download.StateDownloading:
		if p.Total <= 0 && p.Done == 0 {
			return
		}
		bar := v.bars[p.Model]
		if bar == nil {
			bar = downloadTemplate.New(0)
			bar.SetWriter(v.out)
			bar.Set(pb.Bytes, true)
			bar.Set(pb.Static, v.static)
			bar.Set(pb.Terminal, !v.static)
			bar.Set("prefix", p.Model)
			bar.Start()
			v.bars[p.Model] = bar
		}
		if p.Total > 0 {
			bar.SetTotal(p.Total)
		}
		bar.SetCurrent(p.Done)
		if v.static {
			bar.Write()
		}
	case download.StateComplete:
		v.finish(p.Model)
		if p.Cached {
			fmt.Fprintf(v.out, "ok %s (cached)\n", p.Model)
			return
		}
		fmt.Fprintf(v.out, "ok %s %s\n", p.Model, humanize.IBytes(uint64(p.Done)))
	case download.StateSkipped:
		fmt.Fprintf(v.out, "-- %s fetched by the server on first use\n", p.Model)
	case download.StateFailed:
		v.finish(p.Model)
		fmt.Fprintf(v.out, "!! %s: %s\n", p.Model, p.Err)
	}
}

func (v *DownloadView) finish(model string) {
	if bar, ok := v.bars[model]; ok {
		bar.Finish()
		delete(v.bars, model)
	}
}
