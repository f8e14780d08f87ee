package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/levimarcus10/BerlinOriginal/internal/engine"
	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// FakeEngine replays recorded simulation outputs instead of running a
// simulation. The score history is cut at the config's last iteration, so
// one recording serves runs of any length up to its own.
//
// With WriteOutputs set, the outputs are written into the run's output
// directory and read back through engine.ReadOutputs, exercising the same
// file readers as a real run.
type FakeEngine struct {
	Scores       *scorestats.History
	Population   *population.Population
	Err          error
	WriteOutputs bool

	mu    sync.Mutex
	calls []*matsimcfg.Config
}

// Run implements engine.Engine.
func (f *FakeEngine) Run(ctx context.Context, cfg *matsimcfg.Config) (*engine.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg.Clone())
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}

	last, err := cfg.LastIteration()
	if err != nil {
		return nil, err
	}
	scores := scorestats.NewHistory()
	if f.Scores != nil {
		for _, item := range scorestats.Items {
			for it, v := range f.Scores.Series(item) {
				if it <= last {
					scores.Set(item, it, v)
				}
			}
		}
	}

	dir := cfg.OutputDirectory()
	if !f.WriteOutputs {
		return &engine.RunResult{OutputDir: dir, Scores: scores, Population: f.Population}, nil
	}

	prefix := ""
	if id := cfg.RunID(); id != "" {
		prefix = id + "."
	}
	if err := writeScores(filepath.Join(dir, prefix+engine.ScoreStatsFile), scores); err != nil {
		return nil, err
	}
	pop := f.Population
	if pop == nil {
		pop = population.New()
	}
	if err := population.WritePlansFile(filepath.Join(dir, prefix+engine.OutputPlansFile), pop); err != nil {
		return nil, err
	}
	return engine.ReadOutputs(dir, cfg.RunID())
}

// Calls returns copies of the configs the engine was run with.
func (f *FakeEngine) Calls() []*matsimcfg.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*matsimcfg.Config(nil), f.calls...)
}

func writeScores(path string, h *scorestats.History) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := h.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LinearScores builds a history for iterations 0..last whose executed and
// average scores pass through the given anchors and are linearly
// interpolated in between. Iterations before the first anchor take its
// value; likewise after the last one.
func LinearScores(last int, anchors map[int]float64) *scorestats.History {
	h := scorestats.NewHistory()
	if len(anchors) == 0 {
		return h
	}
	for it := 0; it <= last; it++ {
		v := interpolate(anchors, it)
		h.Set(scorestats.Executed, it, v)
		h.Set(scorestats.Average, it, v)
	}
	return h
}

func interpolate(anchors map[int]float64, it int) float64 {
	if v, ok := anchors[it]; ok {
		return v
	}
	lo, hi := -1, -1
	for a := range anchors {
		if a < it && (lo < 0 || a > lo) {
			lo = a
		}
		if a > it && (hi < 0 || a < hi) {
			hi = a
		}
	}
	switch {
	case lo < 0:
		return anchors[hi]
	case hi < 0:
		return anchors[lo]
	}
	frac := float64(it-lo) / float64(hi-lo)
	return anchors[lo] + frac*(anchors[hi]-anchors[lo])
}
