package store

import (
	"path/filepath"
	"testing"

	"github.com/levimarcus10/BerlinOriginal/internal/testutil"
)

// createTestStore creates a new store in a temp dir with deterministic run
// IDs (run-0001, run-0002, ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDs("run")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a passing run with one average score and two modes.
func createTestRun(scenario string) RunRecord {
	return RunRecord{
		Scenario:      scenario,
		ConfigPath:    "configs/" + scenario + ".xml",
		LastIteration: 1,
		Pass:          true,
		Scores: map[string]map[int]float64{
			"average": {0: 115.2173655596178, 1: 112.29308182114058},
		},
		Modes: map[string]int{"car": 3, "walk": 1},
	}
}
