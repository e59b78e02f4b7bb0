package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qmx/internal/document"
	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/ir"
	"github.com/roach88/qmx/internal/rewrite"
	"github.com/roach88/qmx/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single journaled run.
type ReplayRunResult struct {
	RunID         string   `json:"run_id"`
	Document      string   `json:"document"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled rewrites and verify determinism",
		Long: `Re-run every journaled rewrite from its stored source document and
verify that the input fingerprint, the output fingerprint, the error and
the replacement sequence are identical to what was recorded.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (journal not found, etc.)

Examples:
  qmx replay --db ./qmx.db
  qmx replay --db ./qmx.db --run 0190a5c2-...
  qmx replay --db ./qmx.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (defaults to journal.path)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openExistingJournal(formatter, opts.Database, opts.config().Journal.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			msg := fmt.Sprintf("run %s not found", opts.RunID)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	for _, run := range runs {
		rr := replayRun(run)
		opts.logger().Debug("replayed run", "run", run.ID, "deterministic", rr.Deterministic)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if formatter.Format == "json" {
		if !result.AllDeterministic {
			if err := formatter.Failure(result, ErrCodeDeterminism, "determinism verification failed"); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return formatter.Success(result)
	}

	return outputReplayText(formatter, result)
}

// openExistingJournal opens the journal named by flag, falling back to the
// configured path. Replay and history never create a journal.
func openExistingJournal(formatter *OutputFormatter, flag, configured string) (*store.Store, error) {
	path := flag
	if path == "" {
		path = configured
	}
	if path == "" {
		msg := "no journal: pass --db or set journal.path"
		_ = formatter.Error(ErrCodeJournal, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	if !fileExists(path) {
		msg := fmt.Sprintf("journal not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// replayRun re-decodes the stored source and rewrites it again under the
// recorded strictness.
func replayRun(run store.Run) ReplayRunResult {
	rr := ReplayRunResult{RunID: run.ID, Document: run.Document, Deterministic: true}
	differ := func(format string, args ...any) {
		rr.Deterministic = false
		rr.Differences = append(rr.Differences, fmt.Sprintf(format, args...))
	}

	if run.EncodingVersion != ir.EncodingVersion {
		differ("encoding version %s, current %s", run.EncodingVersion, ir.EncodingVersion)
		return rr
	}

	doc, err := document.Decode(run.Document, run.Source)
	if err != nil {
		differ("source no longer decodes: %v", err)
		return rr
	}

	inFP, err := expr.Fingerprint(doc.Input)
	if err != nil {
		differ("fingerprint input: %v", err)
		return rr
	}
	if inFP != run.InputFingerprint {
		differ("input fingerprint %s, recorded %s", inFP, run.InputFingerprint)
	}

	var reps []store.Replacement
	r := doc.Rewriter()
	r.Strict = run.Strict
	r.OnReplace = func(rep rewrite.Replacement) {
		reps = append(reps, store.Replacement{Source: rep.Name, Depth: rep.Depth})
	}
	out, rewriteErr := r.Rewrite(doc.Input)
	if rewriteErr != nil {
		reps = nil
	}

	switch {
	case rewriteErr != nil && !run.Failed():
		differ("rewrite failed: %v", rewriteErr)
	case rewriteErr == nil && run.Failed():
		differ("rewrite succeeded, recorded error %q", run.Error)
	case rewriteErr != nil:
		if rewriteErr.Error() != run.Error {
			differ("error %q, recorded %q", rewriteErr.Error(), run.Error)
		}
	default:
		outFP, err := expr.Fingerprint(out)
		if err != nil {
			differ("fingerprint output: %v", err)
		} else if outFP != run.OutputFingerprint {
			differ("output fingerprint %s, recorded %s", outFP, run.OutputFingerprint)
		}
	}

	if !sameReplacements(reps, run.Replacements) {
		differ("%d replacement(s), recorded %d", len(reps), len(run.Replacements))
	}
	return rr
}

func sameReplacements(a, b []store.Replacement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		fmt.Fprintf(w, "%s Run: %s (%s)\n", mark(run.Deterministic), run.RunID, run.Document)
		for _, d := range run.Differences {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	if len(result.Runs) > 0 {
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All runs verified deterministic\n", mark(true))
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", mark(false))
	return NewExitError(ExitFailure, "determinism verification failed")
}
