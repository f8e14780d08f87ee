package engine

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// Output file names as written by the simulation.
const (
	ScoreStatsFile  = "scorestats.txt"
	OutputPlansFile = "output_plans.xml.gz"
)

// ReadOutputs loads the score history and final population from a finished
// run's output directory. Files prefixed with runID win over unprefixed
// ones.
func ReadOutputs(dir, runID string) (*RunResult, error) {
	scoresPath, err := findOutput(dir, runID, ScoreStatsFile)
	if err != nil {
		return nil, err
	}
	scores, err := scorestats.ReadFile(scoresPath)
	if err != nil {
		return nil, outputInvalid(scoresPath, err)
	}
	if err := scores.Validate(); err != nil {
		return nil, outputInvalid(scoresPath, err)
	}

	plansPath, err := findOutput(dir, runID, OutputPlansFile, "output_plans.xml")
	if err != nil {
		return nil, err
	}
	pop, err := population.ReadPlansFile(plansPath)
	if err != nil {
		return nil, outputInvalid(plansPath, err)
	}

	return &RunResult{OutputDir: dir, Scores: scores, Population: pop}, nil
}

func findOutput(dir, runID string, names ...string) (string, error) {
	var candidates []string
	for _, name := range names {
		if runID != "" {
			candidates = append(candidates, filepath.Join(dir, runID+"."+name))
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", &RuntimeError{Code: ErrCodeOutputMissing, Message: "cannot access output", Err: err, Details: map[string]string{"path": c}}
		}
	}
	return "", &RuntimeError{
		Code:    ErrCodeOutputMissing,
		Message: "output file not found",
		Details: map[string]string{"dir": dir, "file": names[0]},
	}
}

func outputInvalid(path string, err error) error {
	return &RuntimeError{Code: ErrCodeOutputInvalid, Message: "failed to read output", Err: err, Details: map[string]string{"path": path}}
}
