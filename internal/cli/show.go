package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/specflow/internal/store"
	"github.com/roach88/specflow/internal/usage"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	List     bool
}

// ShowResult is a stored run with its summaries.
type ShowResult struct {
	Run       store.Run        `json:"run"`
	Summaries []usage.Snapshot `json:"summaries"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored analysis run",
		Long: `Print the usage summaries of a stored run in the format of analyze.
Without a run id the latest run is shown. With --list all runs are listed.

Examples:
  specflow show --db ./specflow.db
  specflow show --db ./specflow.db 0190f5c2-...
  specflow show --db ./specflow.db --list --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runShow(cmd.Context(), opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored runs")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, runID string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		if f.Format == "json" {
			return f.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(f.Writer, "No runs stored.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(f.Writer, "%4d  %s  %s  %s\n", r.Seq, r.ID, r.ProgramHash[:min(len(r.ProgramHash), 12)], r.Source)
		}
		return nil
	}

	if runID == "" {
		latest, ok, err := st.LatestRun(ctx)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeStore, "failed to read latest run", err)
		}
		if !ok {
			return fail(f, ExitCommandError, ErrCodeStore, "no runs stored", store.ErrRunNotFound)
		}
		runID = latest.ID
	}

	run, summaries, err := st.ReadRun(ctx, runID)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	if f.Format == "json" {
		return f.Success(ShowResult{Run: run, Summaries: summaries})
	}
	fmt.Fprintf(f.Writer, "Run %s (seq %d) of %s\n", run.ID, run.Seq, run.Source)
	return usage.WriteSnapshots(f.Writer, summaries)
}

// openExisting opens a store that must already exist. store.Open would
// create an empty database.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("database not found: %s", path)
		}
		return nil, err
	}
	return store.Open(path)
}
