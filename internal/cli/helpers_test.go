package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/roach88/qmx/internal/testutil"
)

const queriesCUE = `package queries

query: answer: {
	sources: sourceA: "Product"
	input: ref: "sourceA"
	mapping: sourceA: const: 42
	strict: true
}

query: lines: {
	sources: o: "Order"
	model: {
		from: {name: "l", type: "Line", "in": member: {expr: ref: "o", name: "Lines"}}
		body: [{where: binary: {op: ">", left: member: {expr: ref: "l", name: "Qty"}, right: const: 0}}]
		select: ref: "l"
	}
	mapping: o: param: "current"
}

query: passthrough: {
	sources: sourceB: "Order"
	input: ref: "sourceB"
}
`

const strictFailureCUE = `package queries

query: broken: {
	sources: {sourceA: "Product", sourceB: "Order"}
	input: binary: {op: "==", left: ref: "sourceA", right: ref: "sourceB"}
	mapping: sourceA: const: 42
	strict: true
}
`

// isolate moves the test into an empty directory with no qmx.yaml and an
// empty HOME, so config loading sees only defaults.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

// writeQueries writes a documents directory and returns its path.
func writeQueries(t *testing.T, root, src string) string {
	t.Helper()
	dir := filepath.Join(root, "queries")
	testutil.WriteFile(t, dir, "queries.cue", src)
	return dir
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
