package engine

import (
	"context"

	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// Engine runs one simulation for cfg. Implementations must not mutate cfg
// and must write outputs only below cfg.OutputDirectory().
type Engine interface {
	Run(ctx context.Context, cfg *matsimcfg.Config) (*RunResult, error)
}

// RunResult is what a finished run exposes to the harness.
type RunResult struct {
	OutputDir  string
	Scores     *scorestats.History
	Population *population.Population
}

// ScoreHistory returns iteration -> value for one statistic.
func (r *RunResult) ScoreHistory(item scorestats.Item) map[int]float64 {
	if r.Scores == nil {
		return map[int]float64{}
	}
	return r.Scores.Series(item)
}

// Persons returns the final population ordered by person ID.
func (r *RunResult) Persons() []*population.Person {
	if r.Population == nil {
		return nil
	}
	return r.Population.Persons()
}

// Func adapts a plain function to Engine.
type Func func(ctx context.Context, cfg *matsimcfg.Config) (*RunResult, error)

// Run implements Engine.
func (f Func) Run(ctx context.Context, cfg *matsimcfg.Config) (*RunResult, error) {
	return f(ctx, cfg)
}
