package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/qmx/internal/document"
	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/rewrite"
	"github.com/roach88/qmx/internal/testutil"
)

// Harness executes scenarios. Each run gets a fresh logical clock so traces
// are reproducible.
type Harness struct {
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// New creates a harness. A nil logger discards rewriter debug output.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{clock: testutil.NewDeterministicClock(), logger: logger}
}

// Run executes a scenario with a silent harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Decode the scenario into a document (sources, input, mapping)
//  2. Decode the expected output, if any
//  3. Rewrite the input, recording each replacement in the trace
//  4. Evaluate the expect block against the outcome
//
// A rewrite failure is an outcome, not an error: the returned error is
// reserved for scenarios that cannot be decoded.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	h.clock.Reset()

	doc, err := document.Decode(scenario.Name, scenario.Document())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	var expected expr.Expression
	if scenario.Expect.Output != nil {
		expected, err = doc.DecodeExpected(scenario.Expect.Output)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result := NewResult()
	r := doc.Rewriter()
	r.Logger = h.logger.With("scenario", scenario.Name)
	r.OnReplace = func(rep rewrite.Replacement) {
		result.AddReplaceTrace(rep.Name, rep.Depth, h.clock.Next())
	}

	out, rewriteErr := r.Rewrite(doc.Input)
	if rewriteErr != nil {
		result.AddErrorTrace(rewriteErr.Error(), h.clock.Next())
	} else {
		result.Output = expr.Format(out)
		result.Fingerprint, err = expr.Fingerprint(out)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: fingerprint output: %w", scenario.Name, err)
		}
		result.AddResultTrace(result.Output, h.clock.Next())
	}

	o := &outcome{
		input:    doc.Input,
		output:   out,
		err:      rewriteErr,
		expected: expected,
	}
	for _, msg := range evaluateExpect(result, scenario.Expect, o) {
		result.AddError(msg)
	}
	return result, nil
}

// RunAll runs every scenario in order. It stops at the first scenario that
// cannot be decoded.
func (h *Harness) RunAll(scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := h.Run(s)
		if err != nil {
			return results, err
		}
		h.logger.Debug("scenario finished", "scenario", s.Name, "pass", res.Pass)
		results = append(results, res)
	}
	return results, nil
}
