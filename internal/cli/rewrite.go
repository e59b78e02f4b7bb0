package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/qmx/internal/document"
	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/ir"
	"github.com/roach88/qmx/internal/rewrite"
	"github.com/roach88/qmx/internal/store"
)

// RewriteOptions holds flags for the rewrite command.
type RewriteOptions struct {
	*RootOptions
	Query    string
	Strict   bool
	Database string

	// IDGenerator allows overriding journal run IDs (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RewriteEntry is the outcome of rewriting one document.
type RewriteEntry struct {
	Document     string `json:"document"`
	Strict       bool   `json:"strict"`
	Output       string `json:"output,omitempty"`
	Literal      any    `json:"literal,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	Replacements int    `json:"replacements"`
	Error        string `json:"error,omitempty"`
	RunID        string `json:"run_id,omitempty"`
}

// RewriteReport holds the outcome of a rewrite command.
type RewriteReport struct {
	Documents []RewriteEntry `json:"documents"`
	Failed    int            `json:"failed"`
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	return newRewriteCommand(&RewriteOptions{RootOptions: rootOpts})
}

func newRewriteCommand(opts *RewriteOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite [documents-dir]",
		Short: "Rewrite query documents",
		Long: `Compile the CUE query documents in a directory and rewrite each one.

Every reference to a mapped query source is replaced by its mapped
expression, including references inside nested sub-queries. A strict
document fails on a reference to an unmapped source; a lenient one leaves
it in place.

With --db, every rewrite is journaled for later replay and history.

Exit codes:
  0 - All documents rewritten
  1 - One or more strict rewrites failed
  2 - Command error (invalid paths, unreadable journal, etc.)

Examples:
  qmx rewrite ./queries
  qmx rewrite ./queries --query lines --strict
  qmx rewrite ./queries --db ./qmx.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.config().Document.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			return runRewrite(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "rewrite only the named document")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on unmapped references in every document")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal runs to this SQLite database")

	return cmd
}

func runRewrite(opts *RewriteOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.config()

	forceStrict := cfg.Rewrite.Strict
	if cmd.Flags().Changed("strict") {
		forceStrict = opts.Strict
	}
	dbPath := cfg.Journal.Path
	if cmd.Flags().Changed("db") {
		dbPath = opts.Database
	}

	loaded, err := loadDocuments(formatter, dir)
	if err != nil {
		return err
	}

	docs := loaded.Documents
	if opts.Query != "" {
		doc := loaded.Document(opts.Query)
		if doc == nil {
			msg := fmt.Sprintf("document %q not found in %s", opts.Query, dir)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		docs = []*document.Document{doc}
	}

	var j *journal
	if dbPath != "" {
		j, err = openJournal(ctx, dbPath, opts.IDGenerator)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		logger.Info("journal ready", "path", dbPath, "last_seq", j.clock.Current())
	}

	report := RewriteReport{Documents: make([]RewriteEntry, 0, len(docs))}
	for _, doc := range docs {
		entry, run, err := rewriteDocument(doc, doc.Strict || forceStrict, logger)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "rewrite "+doc.Name, err)
		}
		if j != nil {
			entry.RunID, err = j.record(ctx, run)
			if err != nil {
				_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to journal run", err)
			}
		}
		if entry.Error != "" {
			report.Failed++
		}
		report.Documents = append(report.Documents, entry)

		if formatter.Format != "json" {
			printRewriteEntry(formatter, entry)
		}
	}

	if report.Failed > 0 {
		msg := fmt.Sprintf("%d rewrite(s) failed", report.Failed)
		if formatter.Format == "json" {
			if err := formatter.Failure(report, ErrCodeRewriteFailed, msg); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(formatter.Writer, "\n%s %s\n", mark(false), msg)
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	return nil
}

// rewriteDocument rewrites one document and builds its journal row. Only
// problems outside the rewrite itself (fingerprinting, encoding) are
// returned as errors; an unmapped reference is reported in the entry.
func rewriteDocument(doc *document.Document, strict bool, logger *slog.Logger) (RewriteEntry, store.Run, error) {
	entry := RewriteEntry{Document: doc.Name, Strict: strict}
	run := store.Run{
		Document:        doc.Name,
		Source:          doc.Raw,
		Strict:          strict,
		Replacements:    []store.Replacement{},
		EncodingVersion: ir.EncodingVersion,
		ToolVersion:     ir.ToolVersion,
	}

	inFP, err := expr.Fingerprint(doc.Input)
	if err != nil {
		return entry, run, err
	}
	run.InputFingerprint = inFP

	r := doc.Rewriter()
	r.Strict = strict
	r.Logger = logger.With("document", doc.Name)
	r.OnReplace = func(rep rewrite.Replacement) {
		run.Replacements = append(run.Replacements, store.Replacement{Source: rep.Name, Depth: rep.Depth})
	}

	out, rewriteErr := r.Rewrite(doc.Input)
	if rewriteErr != nil {
		// A failed rewrite applies nothing.
		run.Replacements = []store.Replacement{}
		entry.Error = rewriteErr.Error()
		run.Error = entry.Error
		logger.Warn("rewrite failed", "document", doc.Name, "error", rewriteErr)
		return entry, run, nil
	}

	entry.Replacements = len(run.Replacements)
	entry.Output = expr.Format(out)
	entry.Fingerprint, err = expr.Fingerprint(out)
	if err != nil {
		return entry, run, err
	}
	entry.Literal, err = document.Encode(out)
	if err != nil {
		return entry, run, err
	}
	run.Output = entry.Output
	run.OutputFingerprint = entry.Fingerprint

	logger.Debug("rewrite finished", "document", doc.Name, "replacements", entry.Replacements)
	return entry, run, nil
}

func printRewriteEntry(f *OutputFormatter, entry RewriteEntry) {
	if entry.Error != "" {
		fmt.Fprintf(f.Writer, "%s %s: %s\n", mark(false), entry.Document, entry.Error)
		return
	}
	fmt.Fprintf(f.Writer, "%s %s: %s\n", mark(true), entry.Document, entry.Output)
	f.VerboseLog("  %d replacement(s), fingerprint %s", entry.Replacements, entry.Fingerprint)
}
