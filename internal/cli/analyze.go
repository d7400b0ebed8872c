package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/specflow/internal/compiler"
	"github.com/roach88/specflow/internal/pipeline"
	"github.com/roach88/specflow/internal/store"
	"github.com/roach88/specflow/internal/summary"
	"github.com/roach88/specflow/internal/usage"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Database    string
	Output      string
	Strict      bool
	Parallelism int
	Check       bool

	// IDs overrides the run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator
}

// AnalyzeResult is the outcome of the analyze command.
type AnalyzeResult struct {
	Source      string           `json:"source"`
	ProgramHash string           `json:"program_hash"`
	Run         *store.Run       `json:"run,omitempty"`
	BaseRunID   string           `json:"base_run_id,omitempty"`
	Summaries   []usage.Snapshot `json:"summaries"`
	Changes     []store.Change   `json:"changes,omitempty"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <program>",
		Short: "Run the memory usage analysis",
		Long: `Compile a program description and compute the memory usage of every
function variant in its target modules.

The program is a directory of CUE files, a single .cue file, or a .yaml
file. With --db the summaries are stored as a new run and compared with
the latest earlier run of the same program.

Exit codes:
  0 - Analysis succeeded
  1 - Summaries changed since the previous run (only with --check)
  2 - Command error (load or compile error, invariant violation, store error)

Examples:
  specflow analyze ./testdata/programs/bank
  specflow analyze ./program.yaml --strict --parallel 4
  specflow analyze ./bank --db ./specflow.db --check
  specflow analyze ./bank --format json -o usage.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to store the run in")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on calls to functions without a summary")
	cmd.Flags().IntVar(&opts.Parallelism, "parallel", 1, "number of call graph components analyzed concurrently")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "exit 1 if summaries changed since the previous run (requires --db)")

	return cmd
}

func runAnalyze(ctx context.Context, opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Parallelism < 1 {
		return NewExitError(ExitCommandError, "--parallel must be at least 1")
	}
	if opts.Check && opts.Database == "" {
		return NewExitError(ExitCommandError, "--check requires --db")
	}

	f := opts.formatter(cmd)
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer file.Close()
		f.Writer = file
	}

	src, prog, err := loadProgram(path)
	if err != nil {
		return fail(f, ExitCommandError, errorCode(err, ErrCodeGeneric), "failed to compile program", err)
	}
	f.VerboseLog("Compiled %s: %s", src.Name, prog.Env.Describe())

	hash, err := src.Hash()
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeGeneric, "failed to hash program", err)
	}

	snaps, err := analyzeProgram(ctx, prog, opts.Strict, opts.Parallelism)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeAnalysis, "analysis failed", err)
	}

	result := AnalyzeResult{
		Source:      src.Name,
		ProgramHash: hash,
		Summaries:   snaps,
	}
	if opts.Database != "" {
		if err := storeRun(ctx, opts, &result); err != nil {
			return fail(f, ExitCommandError, ErrCodeStore, "failed to store run", err)
		}
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else if err := writeAnalyzeText(f.Writer, &result); err != nil {
		return err
	}

	if opts.Check {
		if n := countChanges(result.Changes); n > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d summaries changed since run %s", n, result.BaseRunID))
		}
	}
	return nil
}

// loadProgram loads and compiles the program description at path.
func loadProgram(path string) (*compiler.Source, *compiler.Program, error) {
	src, err := compiler.LoadPath(path)
	if err != nil {
		return nil, nil, err
	}
	prog, err := compiler.Compile(src)
	if err != nil {
		return nil, nil, err
	}
	return src, prog, nil
}

// analyzeProgram runs the usage analysis over prog. An invariant violation
// escaping the analysis is returned as an ExitError.
func analyzeProgram(ctx context.Context, prog *compiler.Program, strict bool, parallelism int) (snaps []usage.Snapshot, err error) {
	defer recoverInvariant(&err)

	policy := summary.Lenient
	if strict {
		policy = summary.Strict
	}
	p := pipeline.New(pipeline.WithParallelism(parallelism)).
		AddProcessor(usage.NewProcessor(usage.WithMissingPolicy(policy)))
	if err := p.Run(ctx, prog.Env, prog.Holder); err != nil {
		return nil, err
	}
	return usage.Snapshots(prog.Env, prog.Holder), nil
}

// storeRun writes the summaries as a new run and compares them with the
// latest earlier run of the same source.
func storeRun(ctx context.Context, opts *AnalyzeOptions, result *AnalyzeResult) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	source := sourceKey(result.Source)
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Source == source {
			result.BaseRunID = runs[i].ID
			break
		}
	}
	if result.BaseRunID != "" {
		if result.Changes, err = st.Compare(ctx, result.BaseRunID, result.Summaries); err != nil {
			return err
		}
	}

	ids := opts.IDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	run, err := st.WriteRun(ctx, store.NewRun(ids, source, result.ProgramHash, opts.Strict), result.Summaries)
	if err != nil {
		return err
	}
	result.Run = &run
	slog.Info("run stored", "id", run.ID, "seq", run.Seq, "base", result.BaseRunID)
	return nil
}

// sourceKey identifies a program across runs by its absolute path.
func sourceKey(name string) string {
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}

func countChanges(changes []store.Change) int {
	n := 0
	for _, c := range changes {
		if c.Kind != store.Unchanged {
			n++
		}
	}
	return n
}

func writeAnalyzeText(w io.Writer, result *AnalyzeResult) error {
	if err := usage.WriteSnapshots(w, result.Summaries); err != nil {
		return err
	}
	if result.Run == nil {
		return nil
	}
	fmt.Fprintf(w, "Stored run %s (seq %d)\n", result.Run.ID, result.Run.Seq)
	if result.BaseRunID == "" {
		return nil
	}
	counts := make(map[store.ChangeKind]int)
	for _, c := range result.Changes {
		counts[c.Kind]++
	}
	fmt.Fprintf(w, "Compared with run %s: %d added, %d changed, %d removed, %d unchanged\n",
		result.BaseRunID, counts[store.Added], counts[store.Changed], counts[store.Removed], counts[store.Unchanged])
	for _, c := range result.Changes {
		if c.Kind != store.Unchanged {
			fmt.Fprintf(w, "  %-9s %s [%s]\n", c.Kind, c.Function, c.Variant)
		}
	}
	return nil
}

// fail reports err in JSON mode and returns it wrapped with an exit code.
// In text mode the caller's error is printed by main.
func fail(f *OutputFormatter, exit int, code, message string, err error) error {
	if f.Format == "json" {
		_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	}
	return WrapExitError(exit, message, err)
}
