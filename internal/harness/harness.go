package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/levimarcus10/BerlinOriginal/internal/engine"
	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
	"github.com/levimarcus10/BerlinOriginal/internal/modestats"
	"github.com/levimarcus10/BerlinOriginal/internal/outdir"
	"github.com/levimarcus10/BerlinOriginal/internal/trips"
)

// Options configures a scenario run.
type Options struct {
	// Engine runs the simulation. Required.
	Engine engine.Engine

	// OutputRoot is the directory relative output directories live under.
	OutputRoot string

	// Logger receives progress and failure records. Nil discards them.
	Logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run loads its own copy of the config and writes into its own output
// directory, so scenarios never share state.
//
// Execution flow:
//  1. Load the config and apply the overrides
//  2. Prepare the output directory according to the overwrite policy
//  3. Run the engine
//  4. Check the score history is complete
//  5. Count trips per main mode (only when an assertion needs it)
//  6. Evaluate assertions
//
// A non-nil error is always a *RunError and means the scenario could not be
// checked at all. Assertion mismatches are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", scenario.Name)

	result, err := run(ctx, scenario, opts, logger)
	if err != nil {
		var runErr *RunError
		if errors.As(err, &runErr) {
			logger.Error("scenario run failed", "kind", runErr.Kind, "error", runErr.Err)
		}
		return nil, err
	}

	if result.Pass {
		logger.Info("scenario passed", "assertions", len(scenario.Assertions))
	} else {
		logger.Warn("scenario failed", "failures", len(result.Failures), "assertions", len(scenario.Assertions))
	}
	return result, nil
}

func run(ctx context.Context, scenario *Scenario, opts Options, logger *slog.Logger) (*Result, error) {
	fail := func(kind ErrorKind, err error) error {
		return &RunError{Kind: kind, Scenario: scenario.Name, Err: err}
	}

	if opts.Engine == nil {
		return nil, fail(KindConfig, errors.New("no engine configured"))
	}

	cfg, err := matsimcfg.Load(scenario.Config)
	if err != nil {
		return nil, fail(KindConfig, err)
	}
	if err := scenario.Overrides.apply(cfg); err != nil {
		return nil, fail(KindConfig, err)
	}

	dir, err := scenario.outputDir(opts.OutputRoot)
	if err != nil {
		return nil, fail(KindConfig, err)
	}
	cfg.SetOutputDirectory(dir)

	policy, err := cfg.OverwritePolicy()
	if err != nil {
		return nil, fail(KindConfig, err)
	}
	if err := outdir.Prepare(dir, policy); err != nil {
		return nil, fail(KindConfig, err)
	}

	logger.Info("running scenario",
		"config", scenario.Config,
		"last_iteration", scenario.Overrides.LastIteration,
		"output_dir", dir)

	rr, err := opts.Engine.Run(ctx, cfg)
	if err != nil {
		return nil, fail(KindEngine, err)
	}
	if rr == nil || rr.Scores == nil {
		return nil, fail(KindEngine, errors.New("engine returned no score history"))
	}

	if err := rr.Scores.Validate(); err != nil {
		return nil, fail(KindAnalysis, err)
	}
	if last := rr.Scores.LastIteration(); last != scenario.Overrides.LastIteration {
		return nil, fail(KindAnalysis, fmt.Errorf("score history ends at iteration %d, expected %d",
			last, scenario.Overrides.LastIteration))
	}

	ev := &evaluation{scores: rr.Scores}
	if scenario.needsModes() {
		if rr.Population == nil {
			return nil, fail(KindEngine, errors.New("engine returned no population"))
		}
		ev.modes, err = modestats.Analyze(rr.Population, scenario.stageActivities(), scenario.mainModeIdentifier())
		if err != nil {
			return nil, fail(KindAnalysis, err)
		}
		if err := ev.modes.Check(); err != nil {
			return nil, fail(KindAnalysis, err)
		}
		logger.Debug("mode analysis", "trips", ev.modes.Total, "modes", len(ev.modes.Counts))
	}

	result := NewResult()
	for _, f := range ev.evaluateAll(scenario.Assertions) {
		result.AddFailure(f)
	}
	result.Snapshot = buildSnapshot(scenario, ev)
	return result, nil
}

// outputDir resolves where the run writes. Absolute output_dir values are
// used as is; otherwise the directory lives under root, or under the
// scenario's directory when root is empty.
func (s *Scenario) outputDir(root string) (string, error) {
	if s.OutputDir != "" && filepath.IsAbs(s.OutputDir) {
		return s.OutputDir, nil
	}
	var dir string
	switch {
	case root != "" && s.OutputDir != "":
		dir = filepath.Join(root, s.OutputDir)
	case root != "":
		dir = filepath.Join(root, s.Name)
	case s.OutputDir != "":
		dir = filepath.Join(s.baseDir, s.OutputDir)
	default:
		dir = filepath.Join(s.baseDir, "output", s.Name)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	return abs, nil
}

func (s *Scenario) stageActivities() trips.StageActivities {
	stages := trips.DefaultStageActivities()
	if len(s.StageActivities) > 0 {
		stages = trips.NewStageActivities(s.StageActivities...)
	}
	if s.InteractionSuffix {
		stages = stages.WithInteractionSuffix()
	}
	return stages
}

func (s *Scenario) mainModeIdentifier() trips.MainModeIdentifier {
	if len(s.ModePrecedence) > 0 {
		return &trips.PrecedenceIdentifier{Order: s.ModePrecedence, Auxiliary: trips.DefaultAuxiliary}
	}
	return trips.NewPrecedenceIdentifier()
}

// buildSnapshot records every asserted score and, when analyzed, the full
// mode distribution.
func buildSnapshot(s *Scenario, ev *evaluation) *Snapshot {
	snap := &Snapshot{
		Scenario:      s.Name,
		LastIteration: s.Overrides.LastIteration,
		Scores:        make(map[string]map[int]float64),
	}
	for i := range s.Assertions {
		a := &s.Assertions[i]
		if a.Type != AssertScore {
			continue
		}
		item, _ := a.scoreItem()
		v, ok := ev.scores.Value(item, a.Iteration)
		if !ok {
			continue
		}
		series, ok := snap.Scores[string(item)]
		if !ok {
			series = make(map[int]float64)
			snap.Scores[string(item)] = series
		}
		series[a.Iteration] = v
	}

	if ev.modes != nil {
		snap.TripTotal = ev.modes.Total
		snap.ModeCounts = make(map[string]int, len(ev.modes.Counts))
		snap.ModeShares = make(map[string]float64, len(ev.modes.Counts))
		for _, m := range ev.modes.Modes() {
			snap.ModeCounts[m] = ev.modes.Counts[m]
			snap.ModeShares[m] = ev.modes.Share(m)
		}
	}
	return snap
}
