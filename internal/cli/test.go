package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/levimarcus10/BerlinOriginal/internal/engine"
	"github.com/levimarcus10/BerlinOriginal/internal/harness"
	"github.com/levimarcus10/BerlinOriginal/internal/settings"
	"github.com/levimarcus10/BerlinOriginal/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update     bool   // regenerate golden files
	Filter     string // scenario filter (glob pattern on the file name)
	EngineCmd  string
	OutputRoot string
	Database   string
	Jobs       int

	// NewEngine allows overriding the simulation engine (for testing).
	// If nil, an engine.ExecEngine is built from the engine settings.
	NewEngine func(settings.EngineSettings, *slog.Logger) engine.Engine
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name      string            `json:"name"`
	File      string            `json:"file"`
	Pass      bool              `json:"pass"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
	Golden    string            `json:"golden,omitempty"` // "match", "updated" or "mismatch"
	RunID     string            `json:"run_id,omitempty"`
	Snapshot  *harness.Snapshot `json:"snapshot,omitempty"`

	scenario *harness.Scenario
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}
	return newTestCommand(opts)
}

func newTestCommand(opts *TestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run regression scenarios",
		Long: `Run every scenario file in a directory against the simulation and
check the recorded scores and mode shares.

Each scenario's observed values are also compared with golden/<name>.golden
beside the scenario file when that file exists. Scores and mode shares
must match it within the scenario's tolerances.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, no engine configured, etc.)

Examples:
  berlinreg test ./scenarios --engine-cmd "java -Xmx10g -cp matsim-berlin.jar org.matsim.run.RunBerlinScenario {config}"
  berlinreg test ./scenarios --filter "*-1pct-*" --jobs 2
  berlinreg test ./scenarios --update
  berlinreg test ./scenarios --db history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.EngineCmd, "engine-cmd", "", "simulation command, {config} is replaced with the config path")
	cmd.Flags().StringVar(&opts.OutputRoot, "output-root", "", "directory for scenario outputs (default from settings)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "scenarios to run in parallel (default from settings)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	s := opts.settings()

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeInputNotFound,
			fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	// Flags override settings.
	engineSettings := s.Engine
	if opts.EngineCmd != "" {
		engineSettings.Command = opts.EngineCmd
	}
	outputRoot := s.OutputRoot
	if opts.OutputRoot != "" {
		outputRoot = opts.OutputRoot
	}
	dbPath := s.DB
	if opts.Database != "" {
		dbPath = opts.Database
	}
	jobs := s.Jobs
	if opts.Jobs > 0 {
		jobs = opts.Jobs
	}
	if jobs < 1 {
		jobs = 1
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if formatter.JSON() {
			return formatter.Encode(CLIResponse{Status: "ok", Data: TestResult{Scenarios: []ScenarioResult{}}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	newEngine := opts.NewEngine
	if newEngine == nil {
		argv, err := engineSettings.CommandArgs()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "invalid engine command", err)
		}
		if len(argv) == 0 {
			return formatter.Fail(ExitCommandError, ErrCodeInputInvalid,
				"no engine command configured (use --engine-cmd, engine.command in the settings file, or BERLINREG_ENGINE_CMD)", nil)
		}
		newEngine = func(s settings.EngineSettings, logger *slog.Logger) engine.Engine {
			return execEngine(argv, s, logger)
		}
	}
	eng := newEngine(engineSettings, logger)

	results := loadScenarios(scenarioFiles)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := harness.Options{Engine: eng, OutputRoot: outputRoot, Logger: logger}
	var g errgroup.Group
	g.SetLimit(jobs)
	for i := range results {
		if results[i].scenario == nil {
			continue
		}
		r := &results[i]
		g.Go(func() error {
			runScenario(ctx, r, runOpts, opts.Update)
			return nil
		})
	}
	_ = g.Wait()

	if dbPath != "" {
		if err := recordRuns(ctx, dbPath, results); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to record runs", err)
		}
		logger.Debug("runs recorded", "db", dbPath, "count", len(results))
	}

	result := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.JSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(cmd, result)
}

func execEngine(argv []string, s settings.EngineSettings, logger *slog.Logger) engine.Engine {
	return &engine.ExecEngine{
		Command: argv,
		WorkDir: s.WorkDir,
		Env:     s.ExpandedEnv(),
		Timeout: s.Timeout,
		Logger:  logger,
	}
}

// findScenarioFiles finds all YAML scenario files below dir, in lexical
// order.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// loadScenarios loads every file. Files that fail to load, or repeat an
// earlier scenario name, become failed results.
func loadScenarios(files []string) []ScenarioResult {
	results := make([]ScenarioResult, len(files))
	seen := make(map[string]string)
	for i, file := range files {
		results[i] = ScenarioResult{Name: filepath.Base(file), File: file}

		scenario, err := harness.LoadScenario(file)
		if err != nil {
			results[i].ErrorKind = string(harness.KindConfig)
			results[i].Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
			continue
		}
		results[i].Name = scenario.Name
		if prev, ok := seen[scenario.Name]; ok {
			results[i].ErrorKind = string(harness.KindConfig)
			results[i].Errors = []string{fmt.Sprintf("duplicate scenario name %q, first defined in %s", scenario.Name, prev)}
			continue
		}
		seen[scenario.Name] = file
		results[i].scenario = scenario
	}
	return results
}

// runScenario executes one loaded scenario and fills in r.
func runScenario(ctx context.Context, r *ScenarioResult, opts harness.Options, update bool) {
	result, err := harness.Run(ctx, r.scenario, opts)
	if err != nil {
		var runErr *harness.RunError
		if errors.As(err, &runErr) {
			r.ErrorKind = string(runErr.Kind)
			r.Errors = []string{runErr.Err.Error()}
		} else {
			r.Errors = []string{err.Error()}
		}
		return
	}

	r.Pass = result.Pass
	r.Errors = result.Errors
	r.Snapshot = result.Snapshot

	goldenPath := harness.GoldenPath(r.scenario)
	if update {
		if err := updateGoldenFile(goldenPath, result.Snapshot); err != nil {
			r.Pass = false
			r.Errors = append(r.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return
		}
		r.Golden = "updated"
		return
	}

	if _, err := os.Stat(goldenPath); errors.Is(err, fs.ErrNotExist) {
		// No golden file, assertions only.
		return
	}
	diffs, err := compareWithGolden(goldenPath, r.scenario, result.Snapshot)
	switch {
	case err != nil:
		r.Pass = false
		r.Errors = append(r.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case len(diffs) > 0:
		r.Pass = false
		r.Golden = "mismatch"
		r.Errors = append(r.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		for _, d := range diffs {
			r.Errors = append(r.Errors, "golden: "+d)
		}
	default:
		r.Golden = "match"
	}
}

// updateGoldenFile writes the snapshot as the golden file.
func updateGoldenFile(goldenPath string, snap *harness.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := harness.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the snapshot against the golden file within
// the scenario's tolerances.
func compareWithGolden(goldenPath string, scenario *harness.Scenario, snap *harness.Snapshot) ([]string, error) {
	data, err := os.ReadFile(goldenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden file: %w", err)
	}
	golden, err := harness.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	return scenario.CompareSnapshot(golden, snap), nil
}

// recordRuns stores every scenario that was attempted.
func recordRuns(ctx context.Context, dbPath string, results []ScenarioResult) (err error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); err == nil {
			err = closeErr
		}
	}()

	// Recording happens after an interrupt too.
	ctx = context.WithoutCancel(ctx)
	for i := range results {
		r := &results[i]
		if r.scenario == nil {
			continue
		}
		rec := store.RunRecord{
			Scenario:      r.Name,
			ConfigPath:    r.scenario.Config,
			LastIteration: r.scenario.Overrides.LastIteration,
			Pass:          r.Pass,
		}
		switch {
		case r.ErrorKind != "":
			rec.ErrorKind = r.ErrorKind
			rec.Error = strings.Join(r.Errors, "\n")
		default:
			rec.Failures = r.Errors
		}
		if r.Snapshot != nil {
			rec.Scores = r.Snapshot.Scores
			rec.Modes = r.Snapshot.ModeCounts
			if rec.SnapshotHash, err = r.Snapshot.Hash(); err != nil {
				return fmt.Errorf("scenario %s: %w", r.Name, err)
			}
		}
		id, _, err := st.WriteRun(ctx, rec)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", r.Name, err)
		}
		r.RunID = id
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.Encode(response); err != nil {
		return err
	}
	if result.Failed > 0 {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed)))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	for _, r := range result.Scenarios {
		switch {
		case r.Pass && r.Golden == "updated":
			fmt.Fprintf(w, "✓ %s (golden updated)\n", r.Name)
		case r.Pass:
			fmt.Fprintf(w, "✓ %s\n", r.Name)
		default:
			fmt.Fprintf(w, "✗ %s\n", r.Name)
			if r.ErrorKind != "" {
				fmt.Fprintf(w, "  %s error:\n", r.ErrorKind)
			}
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed)))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
