package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"localcode/internal/httpapi"
	"localcode/internal/manager"
	"localcode/internal/status"
	"localcode/internal/ui"
	"localcode/pkg/types"
)

var (
	statusListen      string
	statusFollow      bool
	statusCORSOrigins string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the loading progress of the model server",
	Long: `status attaches to the server's log stream and reports loading phases
until the server is ready. Ctrl-C detaches without stopping the server.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusListen, "listen", "", "serve /status, /events and /metrics on this address, e.g. 127.0.0.1:9090")
	statusCmd.Flags().BoolVar(&statusFollow, "follow", false, "keep following after ready and print timing lines")
	statusCmd.Flags().StringVar(&statusCORSOrigins, "cors-origins", "", "comma-separated origins allowed to call the --listen surface")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, _, err := resolveSetup(false)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	rt, release, err := newRuntime(cfg.Runtime)
	if err != nil {
		return err
	}
	defer release()
	mgr := manager.New(manager.Config{Runtime: rt, Logger: &log})
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := mgr.Probe(ctx)
	if err != nil {
		return err
	}
	switch st.Status {
	case types.StatusNotRunning:
		fmt.Fprintln(out, "No server is running. Run `localcode start` first.")
		return nil
	case types.StatusFailed:
		return fmt.Errorf("server is not running: %s", st.Reason)
	}

	tracker := status.NewTracker()
	if statusListen != "" {
		httpapi.SetLogger(log)
		httpapi.SetBaseContext(ctx)
		httpapi.SetCORS(&httpapi.CORSOptions{Origins: splitCSV(statusCORSOrigins)})
		srv := &http.Server{
			Addr:              statusListen,
			Handler:           httpapi.NewMux(httpapi.NewStatusService(mgr, tracker, cfg.ModelsDir, cfg.Port)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("event", "http_listen").Str("addr", statusListen).Msg("status surface listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status surface stopped")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
		}()
	}

	view := ui.NewStatusView(out, fmt.Sprintf("http://localhost:%d", cfg.Port), !isTerminal(out))
	mon := status.New(rt, status.Options{Follow: statusFollow || statusListen != "", Logger: &log})
	events, errs := mon.Watch(ctx, mgr.Name())
	view.Begin()
	for ev := range events {
		tracker.Observe(ev)
		view.Handle(ev)
	}
	view.End()
	if err := <-errs; err != nil {
		return err
	}
	if !tracker.Ready() && ctx.Err() == nil {
		fmt.Fprintln(out, "Log stream ended before the server became ready; run `localcode status` again or check `docker logs`.")
	}
	return nil
}
