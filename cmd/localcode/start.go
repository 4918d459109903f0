package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"localcode/internal/download"
	"localcode/internal/hardware"
	"localcode/internal/manager"
	"localcode/internal/ui"
	"localcode/pkg/types"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Download weights and start the model server",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, path, err := resolveSetup(true)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log := newLogger(cfg)
	out := cmd.OutOrStdout()
	names := selectionNames(cfg.Models)

	if !cfg.Docker() {
		fmt.Fprintf(out, "Starting %s natively is not supported; set run_in_docker to true.\n", strings.Join(names, ", "))
		return nil
	}
	fmt.Fprintf(out, "Starting %s with llama-swap in Docker on port %d...\n", strings.Join(names, ", "), cfg.Port)

	gpus, gerr := hardware.Probe(log)
	fmt.Fprintln(out, hardware.Summary(gpus, gerr))

	rt, release, err := newRuntime(cfg.Runtime)
	if err != nil {
		return err
	}
	defer release()

	static := !isTerminal(out)
	dl := download.New(download.Config{
		Endpoint:  cfg.HFEndpoint,
		Logger:    &log,
		Publisher: ui.NewDownloadView(out, static),
	})
	mgr := manager.New(manager.Config{
		Runtime:    rt,
		ImageGPU:   cfg.ImageGPU,
		ImageCPU:   cfg.ImageCPU,
		Downloader: dl,
		Logger:     &log,
		Publisher: manager.PublisherFunc(func(e manager.Event) {
			if e.Name == manager.EventFallback {
				fmt.Fprintln(out, "GPU launch failed; retrying on CPU...")
			}
		}),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := mgr.Bootstrap(ctx, cfg.Models, cfg.ModelsDir, uint16(cfg.Port)); err != nil {
		return describeStartError(err)
	}
	ui.WriteNextSteps(out, cfg.Port, names)
	fmt.Fprintln(out, "  Run `localcode stop` later when you want to shut down the server.")
	return nil
}

// describeStartError prefixes err with what the user was waiting for.
func describeStartError(err error) error {
	stage, ok := manager.FailedStage(err)
	if !ok {
		return err
	}
	var se *manager.StageError
	errors.As(err, &se)
	switch stage {
	case manager.StageRuntime:
		return fmt.Errorf("container runtime is not available (is Docker running?): %w", se.Err)
	case manager.StageDownload:
		return fmt.Errorf("failed to download models: %w", se.Err)
	default:
		return fmt.Errorf("failed to start Docker container: %w", se.Err)
	}
}

func selectionNames(sels []types.ModelSelection) []string {
	out := make([]string, 0, len(sels))
	for _, s := range sels {
		out = append(out, s.Name)
	}
	return out
}
