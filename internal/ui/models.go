package ui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"localcode/internal/registry"
	"localcode/pkg/types"
)

// WriteCatalog prints the known model identifiers, marking the default.
func WriteCatalog(w io.Writer, entries []registry.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREPO\tFILE")
	for _, e := range entries {
		name := e.Name
		if name == registry.DefaultModel {
			name += " (default)"
		}
		repo, file, ok := registry.RepoFromURL(e.URL)
		if !ok {
			repo, file = "-", e.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, repo, file)
	}
	return tw.Flush()
}

// WriteCached prints weight files found on disk.
func WriteCached(w io.Writer, models []types.Model) error {
	if len(models) == 0 {
		_, err := fmt.Fprintln(w, "no cached weights")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tREPO\tSIZE")
	for _, m := range models {
		repo := m.RepoID
		if repo == "" {
			repo = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, repo, humanize.IBytes(uint64(m.Size)))
	}
	return tw.Flush()
}

// WriteNextSteps prints what to do after a successful start.
func WriteNextSteps(w io.Writer, port int, names []string) {
	fmt.Fprintln(w, "The model server is starting in the background.")
	fmt.Fprintln(w, "  Run `localcode status` to view its loading progress.")
	fmt.Fprintf(w, "  Endpoint: http://localhost:%d/v1\n", port)
	for _, n := range names {
		fmt.Fprintf(w, "  model: %s\n", n)
	}
}
