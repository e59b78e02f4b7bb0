package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qmx/internal/compiler"
)

// Issue is one load or compile problem, with its CUE position when known.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Document string `json:"document,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// toIssue classifies a compiler.LoadDocuments error.
func toIssue(err error) Issue {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return Issue{Code: loadErrorCode(loadErr.Kind), Message: loadErr.Message}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		issue := Issue{Code: compileErrorCode(compileErr), Message: compileErr.Message}
		if compileErr.Pos.IsValid() {
			issue.File = compileErr.Pos.Filename()
			issue.Line = compileErr.Pos.Line()
			issue.Column = compileErr.Pos.Column()
		}
		return issue
	}

	return Issue{Code: ErrCodeGeneric, Message: err.Error()}
}

func loadErrorCode(kind compiler.LoadErrorKind) string {
	switch kind {
	case compiler.LoadNotFound:
		return ErrCodeNotFound
	case compiler.LoadScanFailed:
		return ErrCodeScanError
	case compiler.LoadNoFiles:
		return ErrCodeNoFiles
	case compiler.LoadFailed:
		return ErrCodeLoadFailed
	case compiler.LoadBuildFailed:
		return ErrCodeBuildFailed
	case compiler.LoadNoDocuments:
		return ErrCodeNoDocuments
	default:
		return ErrCodeGeneric
	}
}

// compileErrorCode maps a compile error to a code. Value errors carry the
// path of the offending field, CUE errors the "cue" field, and decode errors
// the document path.
func compileErrorCode(err *compiler.CompileError) string {
	switch {
	case err.Field == "cue":
		return ErrCodeCUE
	case strings.Contains(err.Message, "float"), strings.Contains(err.Message, "concrete"):
		return ErrCodeInvalidValue
	default:
		return ErrCodeDocument
	}
}

// loadDocuments wraps compiler.LoadDocuments for commands that stop at the
// first problem. The returned error is an *ExitError with ExitCommandError
// after the issue has been reported through formatter.
func loadDocuments(formatter *OutputFormatter, dir string) (*compiler.LoadResult, error) {
	result, errs := compiler.LoadDocuments(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		issue := toIssue(errs[0])
		_ = formatter.Error(issue.Code, issueText(issue), issue)
		return nil, NewExitError(ExitCommandError, issue.Code+": "+issue.Message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)
	return result, nil
}

func issueText(issue Issue) string {
	if issue.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", issue.File, issue.Line, issue.Column, issue.Message)
	}
	return issue.Message
}
