package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/levimarcus10/BerlinOriginal/internal/canonical"
)

// GoldenDir is the directory, next to the scenario file, that holds the
// scenario's snapshot.
const GoldenDir = "golden"

// GoldenPath returns golden/<name>.golden beside the scenario file.
func GoldenPath(s *Scenario) string {
	return filepath.Join(s.baseDir, GoldenDir, s.Name+".golden")
}

// MarshalSnapshot renders a snapshot as canonical, indented JSON so golden
// files are byte-stable across runs and platforms.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return canonical.MarshalIndent(s.canonicalMap())
}

// Hash fingerprints the snapshot. Equal snapshots hash equally regardless
// of map order.
func (s *Snapshot) Hash() (string, error) {
	return canonical.Hash(canonical.DomainSnapshot, s.canonicalMap())
}

// ParseSnapshot decodes a golden file written by MarshalSnapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// CompareSnapshot checks a run's snapshot against a golden one and returns
// one message per difference.
//
// Scores and mode shares are compared with the tolerance of the matching
// assertion, or the default tolerance when the scenario does not assert
// them. Mode counts and the trip total are not compared: they scale with
// the population sample and are pinned by mode_count and trip_total
// assertions where a scenario needs them.
func (s *Scenario) CompareSnapshot(golden, current *Snapshot) []string {
	var diffs []string
	if golden.LastIteration != current.LastIteration {
		diffs = append(diffs, fmt.Sprintf("last iteration: golden %d, got %d", golden.LastIteration, current.LastIteration))
	}

	for _, item := range unionKeys(golden.Scores, current.Scores) {
		want, got := golden.Scores[item], current.Scores[item]
		for _, it := range unionKeys(want, got) {
			subject := fmt.Sprintf("%s score at iteration %d", item, it)
			w, inGolden := want[it]
			g, inRun := got[it]
			switch {
			case !inGolden:
				diffs = append(diffs, subject+": not in golden file")
			case !inRun:
				diffs = append(diffs, subject+": missing from run")
			default:
				if tol := s.scoreTolerance(item, it); !tol.Within(w, g) {
					diffs = append(diffs, fmt.Sprintf("%s: golden %s, got %s (tolerance %s)", subject, formatFloat(w), formatFloat(g), tol))
				}
			}
		}
	}

	for _, mode := range unionKeys(golden.ModeShares, current.ModeShares) {
		w, g := golden.ModeShares[mode], current.ModeShares[mode]
		if tol := s.shareTolerance(mode); !tol.Within(w, g) {
			diffs = append(diffs, fmt.Sprintf("%s share: golden %s, got %s (tolerance %s)", mode, formatFloat(w), formatFloat(g), tol))
		}
	}
	return diffs
}

func (s *Scenario) scoreTolerance(item string, iteration int) Tolerance {
	for i := range s.Assertions {
		a := &s.Assertions[i]
		if a.Type != AssertScore || a.Iteration != iteration {
			continue
		}
		if got, err := a.scoreItem(); err == nil && string(got) == item {
			return a.tolerance()
		}
	}
	return (&Assertion{Type: AssertScore, Iteration: iteration}).tolerance()
}

func (s *Scenario) shareTolerance(mode string) Tolerance {
	for i := range s.Assertions {
		if a := &s.Assertions[i]; a.Type == AssertModeShare && a.Mode == mode {
			return a.tolerance()
		}
	}
	return Regression
}

func unionKeys[K int | string, V any](a, b map[K]V) []K {
	keys := make([]K, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// RunWithGolden executes a scenario and compares its snapshot byte for byte
// against GoldenPath(scenario). It suits deterministic engines such as the
// recorded ones used in tests.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be run. Failed assertions and
// snapshot mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario, opts Options) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against the
// scenario's golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result.Snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(GoldenPath(scenario))),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
