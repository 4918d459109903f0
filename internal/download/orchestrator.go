// Package download guarantees model weights are present in the local cache
// before the server container starts.
package download

import (
	"context"
	"errors"
	"path"

	"localcode/internal/registry"
	"localcode/pkg/types"
)

// Fetcher verifies or fetches one file into the cache and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, repo, file string, onProgress ProgressFunc) (string, error)
}

// Orchestrator runs downloads sequentially and aborts on the first failure.
type Orchestrator struct {
	cfg Config
	// NewFetcher builds the cache-scoped client. Defaults to a HubClient.
	NewFetcher func(cacheDir string) Fetcher
}

// New returns an Orchestrator with defaults applied.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{cfg: cfg}
	o.NewFetcher = func(cacheDir string) Fetcher { return NewHubClient(cacheDir, o.cfg) }
	return o
}

type item struct {
	model  string
	target types.DownloadTarget
}

// Ensure makes every target with a repo reference present under cacheDir.
// Targets in URL form are skipped. The first failure is returned as a
// *DownloadFailedError and later targets are not attempted.
func (o *Orchestrator) Ensure(ctx context.Context, targets []types.DownloadTarget, cacheDir string) error {
	items := make([]item, 0, len(targets))
	for _, t := range targets {
		items = append(items, item{model: label(t), target: t})
	}
	return o.run(ctx, items, cacheDir)
}

// EnsureSelections resolves sels and ensures their targets, attributing
// progress and errors to the selection names.
func (o *Orchestrator) EnsureSelections(ctx context.Context, sels []types.ModelSelection, cacheDir string) error {
	targets := registry.ResolveAll(sels)
	items := make([]item, 0, len(sels))
	for i, s := range sels {
		items = append(items, item{model: s.Name, target: targets[i]})
	}
	return o.run(ctx, items, cacheDir)
}

func (o *Orchestrator) run(ctx context.Context, items []item, cacheDir string) error {
	log := o.cfg.Logger
	pub := o.cfg.Publisher
	for _, it := range items {
		pub.Publish(Progress{Model: it.model, RepoID: it.target.RepoID, File: it.target.FileRef, State: StateQueued, Total: -1})
	}
	fetcher := o.NewFetcher(cacheDir)
	for _, it := range items {
		t := it.target
		base := Progress{Model: it.model, RepoID: t.RepoID, File: t.FileRef, Total: -1}
		if t.RepoID == "" {
			log.Warn().Str("event", "download_skip").Str("model", it.model).Str("file", t.FileRef).
				Msg("target has no repo reference; not pre-fetched")
			filesTotal.WithLabelValues("skipped").Inc()
			p := base
			p.State = StateSkipped
			pub.Publish(p)
			continue
		}
		if err := ctx.Err(); err != nil {
			return o.fail(base, err)
		}
		if t.FileRef == "" {
			return o.fail(base, errors.New("no file reference for "+t.RepoID))
		}

		log.Info().Str("event", "download_start").Str("model", it.model).Str("repo", t.RepoID).Str("file", t.FileRef).Msg("ensuring weights")
		var fetched int64
		p := base
		p.State = StateDownloading
		pub.Publish(p)
		dest, err := fetcher.Fetch(ctx, t.RepoID, t.FileRef, func(done, total int64) {
			bytesTotal.Add(float64(done - fetched))
			fetched = done
			pub.Publish(Progress{Model: it.model, RepoID: t.RepoID, File: t.FileRef, State: StateDownloading, Done: done, Total: total})
		})
		if err != nil {
			return o.fail(base, err)
		}
		cached := fetched == 0
		result := "complete"
		if cached {
			result = "cached"
		}
		filesTotal.WithLabelValues(result).Inc()
		log.Info().Str("event", "download_done").Str("model", it.model).Str("path", dest).Bool("cached", cached).Msg("weights ready")
		done := base
		done.State = StateComplete
		done.Done = fetched
		done.Cached = cached
		pub.Publish(done)
	}
	return nil
}

func (o *Orchestrator) fail(p Progress, cause error) error {
	filesTotal.WithLabelValues("failed").Inc()
	o.cfg.Logger.Error().Err(cause).Str("event", "download_failed").Str("model", p.Model).Msg("download failed")
	p.State = StateFailed
	p.Err = cause.Error()
	o.cfg.Publisher.Publish(p)
	return &DownloadFailedError{Model: p.Model, Cause: cause}
}

func label(t types.DownloadTarget) string {
	if t.RepoID == "" {
		return path.Base(t.FileRef)
	}
	return t.RepoID + "/" + t.FileRef
}
