package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/levimarcus10/BerlinOriginal/internal/engine"
	"github.com/levimarcus10/BerlinOriginal/internal/settings"
	"github.com/levimarcus10/BerlinOriginal/internal/testutil"
)

const testConfig = `<?xml version="1.0" ?>
<config>
	<module name="controler">
		<param name="lastIteration" value="500" />
		<param name="outputDirectory" value="./output" />
		<param name="runId" value="smoke-run" />
	</module>
</config>
`

const smokeScenario = `
name: smoke
description: "Two iterations with one score and one mode check"
config: config.xml
overrides:
  last_iteration: 2
assertions:
  - type: score
    iteration: 0
    expect: 100.5
    tolerance: epsilon
  - type: mode_share
    mode: car
    expect: 0.5
    tolerance: regression
`

// writeScenarioDir creates a scenarios directory with the shared config and
// the given files (name -> content).
func writeScenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.xml"), []byte(testConfig), 0644))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// smokeEngine returns recorded outputs that satisfy smokeScenario: average
// 100.5 at iteration 0 and half of all trips by car.
func smokeEngine(t *testing.T, carTrips int) *testutil.FakeEngine {
	t.Helper()
	pop, err := testutil.PopulationWithModeCounts(map[string]int{"car": carTrips, "walk": 4 - carTrips}, 2)
	require.NoError(t, err)
	return &testutil.FakeEngine{
		Scores:     testutil.LinearScores(2, map[int]float64{0: 100.5, 2: 101}),
		Population: pop,
	}
}

type testRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

// runTestCommand executes the test command with a fake engine.
func runTestCommand(t *testing.T, format string, eng engine.Engine, args ...string) *testRun {
	t.Helper()
	opts := &TestOptions{
		RootOptions: &RootOptions{Format: format},
		NewEngine: func(settings.EngineSettings, *slog.Logger) engine.Engine {
			return eng
		},
	}
	cmd := newTestCommand(opts)
	r := &testRun{}
	cmd.SetOut(&r.stdout)
	cmd.SetErr(&r.stderr)
	cmd.SetArgs(args)
	r.err = cmd.Execute()
	return r
}
