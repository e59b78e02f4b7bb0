package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/qmx/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Document string // optional - runs of one document only
}

// HistoryEntry is one journaled run as listed by the history command.
type HistoryEntry struct {
	RunID        string `json:"run_id"`
	Seq          int64  `json:"seq"`
	Document     string `json:"document"`
	Strict       bool   `json:"strict"`
	Replacements int    `json:"replacements"`
	Output       string `json:"output,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled rewrites",
		Long: `List the rewrites recorded in the journal in sequence order.

Examples:
  qmx history --db ./qmx.db
  qmx history --db ./qmx.db --document lines
  qmx history --db ./qmx.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (defaults to journal.path)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "show runs of one document only")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
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
	if opts.Document != "" {
		runs, err = st.ListRunsForDocument(ctx, opts.Document)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	entries := make([]HistoryEntry, len(runs))
	for i, run := range runs {
		entries[i] = HistoryEntry{
			RunID:        run.ID,
			Seq:          run.Seq,
			Document:     run.Document,
			Strict:       run.Strict,
			Replacements: len(run.Replacements),
			Output:       run.Output,
			Error:        run.Error,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in journal.")
		return nil
	}
	fmt.Fprintln(formatter.Writer, renderHistory(entries))
	return nil
}

func renderHistory(entries []HistoryEntry) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Seq", "Run", "Document", "Strict", "Replacements", "Result"})

	for _, e := range entries {
		res := mark(true) + " " + e.Output
		if e.Error != "" {
			res = mark(false) + " " + e.Error
		}
		tbl.AppendRow(table.Row{e.Seq, e.RunID, e.Document, e.Strict, e.Replacements, res})
	}
	tbl.AppendFooter(table.Row{"", "", "", "", "Total", len(entries)})

	return tbl.Render()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
