package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmx/internal/ir"
	"github.com/roach88/qmx/internal/store"
)

// journalQueries rewrites the documents in src into a fresh journal.
func journalQueries(t *testing.T, root, src string) string {
	t.Helper()
	dir := writeQueries(t, root, src)
	db := filepath.Join(root, "qmx.db")
	_, _, _ = execute(t, "rewrite", dir, "--db", db)
	return db
}

func TestReplay_Deterministic(t *testing.T) {
	root := isolate(t)
	db := journalQueries(t, root, queriesCUE)

	out, _, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 3 run(s)")
	assert.Contains(t, out, "All runs verified deterministic")
}

func TestReplay_FailedRunsReplayAsFailures(t *testing.T) {
	root := isolate(t)
	db := journalQueries(t, root, strictFailureCUE)

	out, _, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "All runs verified deterministic")
}

func TestReplay_SingleRun(t *testing.T) {
	root := isolate(t)
	db := journalQueries(t, root, queriesCUE)

	st, err := store.Open(db)
	require.NoError(t, err)
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	st.Close()

	out, _, err := execute(t, "replay", "--db", db, "--run", runs[1].ID, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "lines", resp.Data.Runs[0].Document)
	assert.True(t, resp.Data.AllDeterministic)

	_, _, err = execute(t, "replay", "--db", db, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_DetectsTampering(t *testing.T) {
	root := isolate(t)
	db := filepath.Join(root, "qmx.db")

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.WriteRun(context.Background(), store.Run{
		ID:       "tampered",
		Seq:      1,
		Document: "answer",
		Source: map[string]any{
			"sources": map[string]any{"a": "Product"},
			"input":   map[string]any{"ref": "a"},
			"mapping": map[string]any{"a": map[string]any{"const": 42}},
		},
		InputFingerprint:  "not-the-real-fingerprint",
		OutputFingerprint: "also-wrong",
		Output:            "42",
		Replacements:      []store.Replacement{{Source: "a"}},
		EncodingVersion:   ir.EncodingVersion,
		ToolVersion:       ir.ToolVersion,
	})
	require.NoError(t, err)
	st.Close()

	out, _, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "input fingerprint")
	assert.Contains(t, out, "output fingerprint")
	assert.Contains(t, out, "Determinism verification failed")
}

func TestReplayRun(t *testing.T) {
	source := map[string]any{
		"sources": map[string]any{"b": "Order"},
		"input":   map[string]any{"ref": "b"},
	}

	tests := []struct {
		name     string
		run      store.Run
		wantDiff string
	}{
		{
			name:     "recorded error but now succeeds",
			run:      store.Run{Source: source, Error: "boom"},
			wantDiff: "rewrite succeeded",
		},
		{
			name:     "now fails but recorded success",
			run:      store.Run{Source: source, Strict: true},
			wantDiff: "rewrite failed",
		},
		{
			name:     "different error text",
			run:      store.Run{Source: source, Strict: true, Error: "other"},
			wantDiff: "error",
		},
		{
			name:     "source no longer decodes",
			run:      store.Run{Source: map[string]any{"bogus": 1}},
			wantDiff: "source no longer decodes",
		},
		{
			name:     "encoding version changed",
			run:      store.Run{Source: source, EncodingVersion: "0"},
			wantDiff: "encoding version",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := tt.run
			run.ID = "r"
			if run.EncodingVersion == "" {
				run.EncodingVersion = ir.EncodingVersion
			}
			rr := replayRun(run)
			assert.False(t, rr.Deterministic)
			assert.Contains(t, strings.Join(rr.Differences, "\n"), tt.wantDiff)
		})
	}
}

func TestReplay_NoJournal(t *testing.T) {
	root := isolate(t)

	_, _, err := execute(t, "replay")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no journal")

	_, _, err = execute(t, "replay", "--db", filepath.Join(root, "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
}

func TestReplay_JournalFromConfig(t *testing.T) {
	root := isolate(t)
	db := journalQueries(t, root, queriesCUE)
	t.Setenv("QMX_JOURNAL_PATH", db)

	out, _, err := execute(t, "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "3 run(s)")
}
