package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmx/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "qmx", cmd.Use)
	assert.Contains(t, cmd.Long, "query sources")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"rewrite", "validate", "test", "replay", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"rewrite", []string{"query", "strict", "db"}},
		{"test", []string{"filter", "update"}},
		{"replay", []string{"db", "run"}},
		{"history", []string{"db", "document"}},
	}
	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	root := isolate(t)
	dir := writeQueries(t, root, queriesCUE)

	_, _, err := execute(t, "rewrite", dir, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFileSetsFormat(t *testing.T) {
	root := isolate(t)
	dir := writeQueries(t, root, queriesCUE)
	testutil.WriteFile(t, root, "qmx.yaml", "output:\n  format: json\n")

	out, _, err := execute(t, "rewrite", dir, "--query", "answer")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestFormatFlagOverridesConfig(t *testing.T) {
	root := isolate(t)
	dir := writeQueries(t, root, queriesCUE)
	testutil.WriteFile(t, root, "qmx.yaml", "output:\n  format: json\n")

	out, _, err := execute(t, "rewrite", dir, "--query", "answer", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "answer: 42")
}

func TestExplicitConfigErrors(t *testing.T) {
	root := isolate(t)
	dir := writeQueries(t, root, queriesCUE)

	_, _, err := execute(t, "--config", filepath.Join(root, "missing.yaml"), "rewrite", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeConfig)
}

func TestVerboseLogsToStderr(t *testing.T) {
	root := isolate(t)
	dir := writeQueries(t, root, queriesCUE)

	out, errOut, err := execute(t, "rewrite", dir, "--query", "answer", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "answer: 42")
	assert.Contains(t, errOut, "rewrite finished")
	assert.Contains(t, errOut, "document=answer")
}
