package harness

// Trace event types.
const (
	EventReplace = "replace"
	EventResult  = "result"
	EventError   = "error"
)

// TraceEvent records one step of a scenario run.
type TraceEvent struct {
	Type   string `json:"type"`             // "replace", "result" or "error"
	Seq    int64  `json:"seq"`              // Logical clock value
	Source string `json:"source,omitempty"` // Replaced source name (replace)
	Depth  int    `json:"depth,omitempty"`  // Sub-query nesting level (replace)
	Output string `json:"output,omitempty"` // Rendered tree (result)
	Error  string `json:"error,omitempty"`  // Rewrite error text (error)
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates the outcome matched the expect block.
	Pass bool `json:"pass"`

	// Output is the rendered rewritten tree; empty when the rewrite failed.
	Output string `json:"output,omitempty"`

	// Fingerprint is the identity-free hash of the rewritten tree.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Trace contains the replacement events followed by one result or
	// error event.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddReplaceTrace records one substituted reference.
func (r *Result) AddReplaceTrace(source string, depth int, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventReplace,
		Seq:    seq,
		Source: source,
		Depth:  depth,
	})
}

// AddResultTrace records the rendered output of a successful rewrite.
func (r *Result) AddResultTrace(output string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventResult,
		Seq:    seq,
		Output: output,
	})
}

// AddErrorTrace records a failed rewrite.
func (r *Result) AddErrorTrace(msg string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EventError,
		Seq:   seq,
		Error: msg,
	})
}

// Replacements counts the replace events in the trace.
func (r *Result) Replacements() int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type == EventReplace {
			n++
		}
	}
	return n
}
