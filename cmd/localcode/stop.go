package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"localcode/internal/manager"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop and remove the model server container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Stopping and removing local LLM Docker container...")
		absent := false
		mgr := manager.New(manager.Config{
			Runtime: rt,
			Logger:  &log,
			Publisher: manager.PublisherFunc(func(e manager.Event) {
				absent = absent || e.Name == manager.EventStopAbsent
			}),
		})
		if err := mgr.Stop(cmd.Context()); err != nil {
			return err
		}
		if absent {
			fmt.Fprintln(out, "No server was running.")
			return nil
		}
		fmt.Fprintln(out, "Server stopped.")
		return nil
	},
}
