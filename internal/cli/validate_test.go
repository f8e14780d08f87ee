package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAssertions = "assertions: [{type: trip_total, count: 1}]"

func scenarioDoc(name, config, assertions string) string {
	return "name: " + name + "\ndescription: test\nconfig: " + config +
		"\noverrides: {last_iteration: 1}\n" + assertions + "\n"
}

func TestValidateBerlinScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute(), buf.String())

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.ElementsMatch(t, []string{
		"berlin-v5.0-10pct-0it",
		"berlin-v5.0-1pct-1it",
		"berlin-v5.0-1pct-100it",
		"berlin-v5.1-1pct-100it",
	}, resp.Data.Scenarios)
}

func TestValidateValidText(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"smoke.yaml": smokeScenario})

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ All scenarios valid (1)")
}

func TestValidateReportsEveryInvalidFile(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"smoke.yaml":     smokeScenario,
		"typo.yaml":      scenarioDoc("typo", "config.xml", "assertion: [{type: trip_total, count: 1}]"),
		"noconfig.yaml":  scenarioDoc("noconfig", "missing.xml", validAssertions),
		"badtol.yaml":    scenarioDoc("badtol", "config.xml", "assertions: [{type: score, iteration: 0, expect: 1, tolerance: loose}]"),
		"nested/ok.yaml": scenarioDoc("nested", "../config.xml", validAssertions),
	})

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	out := buf.String()
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "typo.yaml")
	assert.Contains(t, out, "noconfig.yaml")
	assert.Contains(t, out, "badtol.yaml")
	assert.NotContains(t, out, "ok.yaml")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "All scenarios valid (0)")
}
