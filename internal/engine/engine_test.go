package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

const testScores = "ITERATION\tavg. EXECUTED\tavg. WORST\tavg. AVG\tavg. BEST\n" +
	"0\t115.776237215495\t115.776237215495\t115.776237215495\t115.776237215495\n"

const testPlans = `<?xml version="1.0" encoding="utf-8"?>
<population>
	<person id="1">
		<plan selected="yes">
			<activity type="home" link="1" />
			<leg mode="car" />
			<activity type="work" link="2" />
		</plan>
	</person>
</population>
`

// writeOutputs puts a minimal set of simulation outputs into dir.
func writeOutputs(t *testing.T, dir, prefix string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefix+ScoreStatsFile), []byte(testScores), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefix+"output_plans.xml"), []byte(testPlans), 0644))
}

func TestReadOutputs_Unprefixed(t *testing.T) {
	dir := t.TempDir()
	writeOutputs(t, dir, "")

	res, err := ReadOutputs(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, res.OutputDir)
	assert.Equal(t, map[int]float64{0: 115.776237215495}, res.ScoreHistory(scorestats.Average))
	require.Len(t, res.Persons(), 1)
}

func TestReadOutputs_PrefersRunIDPrefix(t *testing.T) {
	dir := t.TempDir()
	writeOutputs(t, dir, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "berlin."+ScoreStatsFile),
		[]byte("ITERATION\tavg. AVG\n0\t1.5\n"), 0644))

	res, err := ReadOutputs(dir, "berlin")
	require.NoError(t, err)
	v, ok := res.Scores.Value(scorestats.Average, 0)
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
}

func TestReadOutputs_GzipPlans(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScoreStatsFile), []byte(testScores), 0644))

	pop, err := population.ReadPlans(strings.NewReader(testPlans))
	require.NoError(t, err)
	require.NoError(t, population.WritePlansFile(filepath.Join(dir, OutputPlansFile), pop))

	res, err := ReadOutputs(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Population.Len())
}

func TestReadOutputs_Missing(t *testing.T) {
	_, err := ReadOutputs(t.TempDir(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &RuntimeError{Code: ErrCodeOutputMissing}))
	assert.Contains(t, err.Error(), "scorestats.txt")
}

func TestReadOutputs_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeOutputs(t, dir, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScoreStatsFile), []byte("garbage\n"), 0644))

	_, err := ReadOutputs(dir, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &RuntimeError{Code: ErrCodeOutputInvalid}))
}

func TestRunResult_NilParts(t *testing.T) {
	r := &RunResult{}
	assert.Empty(t, r.ScoreHistory(scorestats.Average))
	assert.Nil(t, r.Persons())
}

func TestExpandCommand(t *testing.T) {
	assert.Equal(t, []string{"java", "-jar", "sim.jar", "/c.xml"},
		expandCommand([]string{"java", "-jar", "sim.jar", "{config}"}, "/c.xml"))
	assert.Equal(t, []string{"run", "--config=/c.xml"},
		expandCommand([]string{"run", "--config={config}"}, "/c.xml"))
	assert.Equal(t, []string{"run", "/c.xml"}, expandCommand([]string{"run"}, "/c.xml"))
}

func TestRuntimeError_Message(t *testing.T) {
	err := &RuntimeError{
		Code:    ErrCodeCommandFailed,
		Message: "simulation process failed",
		Err:     errors.New("exit status 1"),
		Details: map[string]string{"stderr": "OutOfMemoryError", "b": "x"},
	}
	assert.Equal(t, "COMMAND_FAILED: simulation process failed: exit status 1 (b=x, stderr=OutOfMemoryError)", err.Error())
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// sourceConfig writes a config file into its own directory.
func sourceConfig(t *testing.T, outDir string) *matsimcfg.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<config><module name="controler"><param name="lastIteration" value="10"/></module></config>`), 0644))
	cfg, err := matsimcfg.Load(path)
	require.NoError(t, err)
	cfg.SetOutputDirectory(outDir)
	cfg.SetLastIteration(0)
	return cfg
}

func TestExecEngine_RunsCommandAndReadsOutputs(t *testing.T) {
	requireShell(t)

	fixtures := t.TempDir()
	writeOutputs(t, fixtures, "")
	outDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	cfg := sourceConfig(t, outDir)
	script := `cp "$SRC"/* "$OUT"/ && cp "$1" "$OUT/effective.xml" && echo "iteration 0 done"`
	eng := &ExecEngine{
		Command: []string{"/bin/sh", "-c", script, "sim", ConfigPlaceholder},
		Env:     []string{"SRC=" + fixtures, "OUT=" + outDir},
	}

	res, err := eng.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Population.Len())

	effective, err := matsimcfg.Load(filepath.Join(outDir, "effective.xml"))
	require.NoError(t, err)
	it, err := effective.LastIteration()
	require.NoError(t, err)
	assert.Equal(t, 0, it, "overrides reach the engine")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.Path()), ".berlinreg-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "effective config is removed after the run")
}

func TestExecEngine_CommandFailure(t *testing.T) {
	requireShell(t)

	cfg := sourceConfig(t, t.TempDir())
	eng := &ExecEngine{Command: []string{"/bin/sh", "-c", `echo "Exception in thread main" >&2; exit 3`}}

	_, err := eng.Run(context.Background(), cfg)
	require.Error(t, err)

	var rerr *RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeCommandFailed, rerr.Code)
	assert.Equal(t, "Exception in thread main", rerr.Details["stderr"])
}

func TestExecEngine_Timeout(t *testing.T) {
	requireShell(t)

	cfg := sourceConfig(t, t.TempDir())
	eng := &ExecEngine{Command: []string{"/bin/sh", "-c", "exec sleep 5"}, Timeout: 50 * time.Millisecond}

	_, err := eng.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &RuntimeError{Code: ErrCodeTimeout}))
}

func TestExecEngine_Interrupted(t *testing.T) {
	requireShell(t)

	cfg := sourceConfig(t, t.TempDir())
	eng := &ExecEngine{Command: []string{"/bin/sh", "-c", "exec sleep 5"}}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := eng.Run(ctx, cfg)
	require.Error(t, err)

	var rerr *RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeInterrupted, rerr.Code)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "INTERRUPTED: simulation interrupted")
}

func TestExecEngine_Misconfigured(t *testing.T) {
	_, err := (&ExecEngine{}).Run(context.Background(), sourceConfig(t, t.TempDir()))
	require.Error(t, err)

	cfg := sourceConfig(t, "")
	_, err = (&ExecEngine{Command: []string{"true"}}).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output directory")
}

func TestLineLogger_KeepsTail(t *testing.T) {
	l := &lineLogger{logger: discardLogger(), stream: "stderr", keep: 2}
	_, _ = l.Write([]byte("one\ntwo\nthr"))
	_, _ = l.Write([]byte("ee\nfour"))
	l.flush()
	assert.Equal(t, "three\nfour", l.tail())
}
