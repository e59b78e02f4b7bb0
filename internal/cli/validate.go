package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qmx/internal/compiler"
	"github.com/roach88/qmx/internal/document"
	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/querymodel"
)

// DocumentValidation holds the checks for one compiled document.
type DocumentValidation struct {
	Document string                  `json:"document"`
	Closed   bool                    `json:"closed"`
	Warnings []string                `json:"warnings,omitempty"`
	Chains   []compiler.ChainWarning `json:"chains,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Documents []DocumentValidation `json:"documents"`
	Errors    []Issue              `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [documents-dir]",
		Short: "Validate query documents without rewriting",
		Long: `Compile the CUE query documents in a directory and check them.

Reports documents that fail to compile, model references to sources that
are not in scope, and mapping entries whose replacement refers to another
mapped source. Single-pass rewriting does not follow such chains.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.config().Document.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, errs := compiler.LoadDocuments(dir, compiler.LoadModeCollectAll)
	if loaded == nil {
		issue := toIssue(errs[0])
		_ = formatter.Error(issue.Code, issueText(issue), issue)
		return NewExitError(ExitCommandError, issue.Code+": "+issue.Message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{Valid: true, Documents: make([]DocumentValidation, 0, len(loaded.Documents))}
	for _, err := range errs {
		result.Errors = append(result.Errors, toIssue(err))
		result.Valid = false
	}

	for _, doc := range loaded.Documents {
		formatter.VerboseLog("Validating document: %s", doc.Name)
		dv := validateDocument(doc)
		if !dv.Closed {
			result.Valid = false
		}
		result.Documents = append(result.Documents, dv)
	}

	if formatter.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result, validationCode(result), "validation failed"); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	return outputValidateText(formatter, result)
}

// validateDocument checks scope closure of model inputs and reports mapping
// chains. Chains are advisory and do not make a document invalid.
func validateDocument(doc *document.Document) DocumentValidation {
	dv := DocumentValidation{
		Document: doc.Name,
		Closed:   true,
		Chains:   compiler.AnalyzeMappingChains(doc),
	}

	if sq, ok := doc.Input.(*expr.SubQuery); ok {
		if m, ok := sq.Model.(*querymodel.QueryModel); ok {
			res := querymodel.Validate(m, doc.Sources...)
			dv.Closed = res.IsClosed
			dv.Warnings = res.Warnings
		}
	}
	return dv
}

func validationCode(result ValidationResult) string {
	if len(result.Errors) > 0 {
		return result.Errors[0].Code
	}
	return ErrCodeDocument
}

func outputValidateText(f *OutputFormatter, result ValidationResult) error {
	w := f.Writer

	for _, issue := range result.Errors {
		fmt.Fprintf(w, "%s %s: %s\n", mark(false), issue.Code, issueText(issue))
	}
	for _, dv := range result.Documents {
		fmt.Fprintf(w, "%s %s\n", mark(dv.Closed), dv.Document)
		for _, warning := range dv.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
		for _, chain := range dv.Chains {
			fmt.Fprintf(w, "  %s: %s\n", chain.Level, chain.Message)
		}
	}

	if result.Valid {
		fmt.Fprintf(w, "%s All documents valid\n", mark(true))
		return nil
	}
	fmt.Fprintf(w, "%s Validation failed\n", mark(false))
	return NewExitError(ExitFailure, "validation failed")
}
