package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/qmx/internal/expr"
)

// Assertion types, used to categorize failures.
const (
	AssertOutput       = "output"
	AssertError        = "error"
	AssertUnchanged    = "unchanged"
	AssertReplacements = "replacements"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		switch event.Type {
		case EventReplace:
			fmt.Fprintf(&buf, "  [%d] replace %s (depth %d)\n", i+1, event.Source, event.Depth)
		case EventResult:
			fmt.Fprintf(&buf, "  [%d] result %s\n", i+1, event.Output)
		case EventError:
			fmt.Fprintf(&buf, "  [%d] error %s\n", i+1, event.Error)
		}
	}

	return buf.String()
}

// outcome is what a rewrite produced, plus the decoded expectation.
type outcome struct {
	input    expr.Expression
	output   expr.Expression
	err      error
	expected expr.Expression
}

// actual describes the outcome for failure messages.
func (o *outcome) actual() string {
	if o.err != nil {
		return "rewrite failed: " + o.err.Error()
	}
	return "rewrite produced " + expr.Format(o.output)
}

func assertOutput(result *Result, o *outcome) error {
	want := expr.Format(o.expected)
	if o.err != nil {
		return &AssertionError{Type: AssertOutput, Expected: want, Actual: o.actual(), Trace: result.Trace}
	}
	wantFP, err := expr.Fingerprint(o.expected)
	if err != nil {
		return fmt.Errorf("fingerprint expected output: %w", err)
	}
	if wantFP != result.Fingerprint {
		return &AssertionError{Type: AssertOutput, Expected: want, Actual: result.Output, Trace: result.Trace}
	}
	return nil
}

func assertError(result *Result, want string, o *outcome) error {
	expected := fmt.Sprintf("error containing %q", want)
	if o.err == nil || !strings.Contains(o.err.Error(), want) {
		return &AssertionError{Type: AssertError, Expected: expected, Actual: o.actual(), Trace: result.Trace}
	}
	return nil
}

func assertUnchanged(result *Result, o *outcome) error {
	if o.err != nil || !expr.Same(o.input, o.output) {
		return &AssertionError{
			Type:     AssertUnchanged,
			Expected: "input returned unchanged: " + expr.Format(o.input),
			Actual:   o.actual(),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertReplacements(result *Result, want int) error {
	if got := result.Replacements(); got != want {
		return &AssertionError{
			Type:     AssertReplacements,
			Expected: fmt.Sprintf("%d replacement(s)", want),
			Actual:   fmt.Sprintf("%d replacement(s)", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// evaluateExpect checks the expect block against a rewrite outcome.
// Returns a slice of error messages for failed expectations.
func evaluateExpect(result *Result, expect Expect, o *outcome) []string {
	var errs []error

	switch {
	case expect.Error != "":
		errs = append(errs, assertError(result, expect.Error, o))
	case expect.Unchanged:
		errs = append(errs, assertUnchanged(result, o))
	case o.expected != nil:
		errs = append(errs, assertOutput(result, o))
	}
	if expect.Replacements != nil {
		errs = append(errs, assertReplacements(result, *expect.Replacements))
	}

	var messages []string
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	return messages
}
