package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levimarcus10/BerlinOriginal/internal/testutil"
)

// recordedHistory runs the smoke scenario three times (pass, fail, engine
// error) into a fresh database and returns its path.
func recordedHistory(t *testing.T) string {
	t.Helper()
	dir := writeScenarioDir(t, map[string]string{"smoke.yaml": smokeScenario})
	dbPath := filepath.Join(t.TempDir(), "history.db")

	for _, eng := range []*testutil.FakeEngine{
		smokeEngine(t, 2),
		smokeEngine(t, 4),
		{Err: errors.New("out of memory")},
	} {
		runTestCommand(t, "text", eng, dir, "--db", dbPath, "--output-root", t.TempDir())
	}
	return dbPath
}

func runHistoryCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestHistoryCommandList(t *testing.T) {
	dbPath := recordedHistory(t)

	buf, err := runHistoryCommand(t, "text", "--db", dbPath)
	require.NoError(t, err)

	out := buf.String()
	assert.Regexp(t, `1st\s+smoke\s+2\s+pass`, out)
	assert.Regexp(t, `2nd\s+smoke\s+2\s+fail \(1\)`, out)
	assert.Regexp(t, `3rd\s+smoke\s+2\s+engine error`, out)
}

func TestHistoryCommandListJSON(t *testing.T) {
	dbPath := recordedHistory(t)

	buf, err := runHistoryCommand(t, "json", "--db", dbPath, "--scenario", "smoke")
	require.NoError(t, err)

	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{resp.Data[0].Seq, resp.Data[1].Seq, resp.Data[2].Seq})
	assert.Equal(t, "out of memory", resp.Data[2].Error)

	// Pass and fail observed different trips; the errored run observed nothing.
	assert.Len(t, resp.Data[0].SnapshotHash, 64)
	assert.NotEqual(t, resp.Data[0].SnapshotHash, resp.Data[1].SnapshotHash)
	assert.Empty(t, resp.Data[2].SnapshotHash)
}

func TestHistoryCommandUnknownScenarioIsEmpty(t *testing.T) {
	dbPath := recordedHistory(t)

	buf, err := runHistoryCommand(t, "text", "--db", dbPath, "--scenario", "berlin-v5.0-10pct-0it")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No runs recorded.")
}

func TestHistoryCommandLastPassing(t *testing.T) {
	dbPath := recordedHistory(t)

	buf, err := runHistoryCommand(t, "text", "--db", dbPath, "--scenario", "smoke", "--last-passing")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "(1st)")
	assert.Contains(t, out, "Result:     pass")
	assert.Contains(t, out, "average @ 0: 100.5")
	assert.Contains(t, out, "car: 2")
}

func TestHistoryCommandShowRun(t *testing.T) {
	dbPath := recordedHistory(t)

	buf, err := runHistoryCommand(t, "json", "--db", dbPath)
	require.NoError(t, err)
	var list struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	failed := list.Data[1]

	buf, err = runHistoryCommand(t, "json", "--db", dbPath, "--run", failed.ID)
	require.NoError(t, err)
	var one struct {
		Data HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &one))
	assert.Equal(t, failed.ID, one.Data.ID)
	assert.False(t, one.Data.Pass)
	assert.Equal(t, map[string]int{"car": 4}, one.Data.Modes)
	require.Len(t, one.Data.Failures, 1)
}

func TestHistoryCommandUnknownRun(t *testing.T) {
	dbPath := recordedHistory(t)

	_, err := runHistoryCommand(t, "text", "--db", dbPath, "--run", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistoryCommandArgumentErrors(t *testing.T) {
	t.Setenv("BERLINREG_DB", "")

	_, err := runHistoryCommand(t, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runHistoryCommand(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runHistoryCommand(t, "text", "--db", "x.db", "--last-passing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--last-passing requires --scenario")
}
