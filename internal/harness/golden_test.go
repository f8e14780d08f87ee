package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenScenario() *Scenario {
	tol := Tolerance{Value: 0.05}
	return &Scenario{
		Name: "smoke",
		Assertions: []Assertion{
			{Type: AssertScore, Item: "average", Iteration: 0, Expect: 100.5},
			{Type: AssertScore, Item: "average", Iteration: 2, Expect: 101.2},
			{Type: AssertModeShare, Mode: "car", Expect: 0.5, Tolerance: &tol},
		},
	}
}

func goldenSnapshot() *Snapshot {
	return &Snapshot{
		Scenario:      "smoke",
		LastIteration: 2,
		Scores:        map[string]map[int]float64{"average": {0: 100.5, 2: 101.2}},
		TripTotal:     4,
		ModeCounts:    map[string]int{"car": 2, "walk": 2},
		ModeShares:    map[string]float64{"car": 0.5, "walk": 0.5},
	}
}

func TestCompareSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Snapshot)
		want   []string
	}{
		{
			name:   "identical",
			modify: func(*Snapshot) {},
		},
		{
			name: "drift within tolerances",
			modify: func(s *Snapshot) {
				s.Scores["average"][2] = 101.205
				s.TripTotal = 400
				s.ModeCounts = map[string]int{"car": 181, "walk": 219}
				s.ModeShares = map[string]float64{"car": 0.4525, "walk": 0.5475}
			},
			want: []string{"walk share: golden 0.5, got 0.5475 (tolerance regression (0.01))"},
		},
		{
			name: "iteration zero uses epsilon",
			modify: func(s *Snapshot) {
				s.Scores["average"][0] = 100.5000001
			},
			want: []string{"average score at iteration 0: golden 100.5, got 100.5000001 (tolerance epsilon (1e-10))"},
		},
		{
			name: "new mode counts from zero",
			modify: func(s *Snapshot) {
				s.ModeShares = map[string]float64{"car": 0.5, "walk": 0.485, "bicycle": 0.015}
			},
			want: []string{"bicycle share: golden 0, got 0.015 (tolerance regression (0.01))"},
		},
		{
			name: "scores added and removed",
			modify: func(s *Snapshot) {
				s.LastIteration = 3
				s.Scores = map[string]map[int]float64{"average": {0: 100.5}, "best": {0: 101}}
			},
			want: []string{
				"last iteration: golden 2, got 3",
				"average score at iteration 2: missing from run",
				"best score at iteration 0: not in golden file",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := goldenSnapshot()
			tt.modify(current)
			assert.Equal(t, tt.want, goldenScenario().CompareSnapshot(goldenSnapshot(), current))
		})
	}
}

func TestParseSnapshot(t *testing.T) {
	data, err := MarshalSnapshot(goldenSnapshot())
	require.NoError(t, err)

	snap, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, goldenSnapshot(), snap)

	_, err = ParseSnapshot([]byte("not json"))
	assert.Error(t, err)
}

func TestGoldenPath(t *testing.T) {
	s := &Scenario{Name: "smoke", baseDir: "/scenarios/nightly"}
	assert.Equal(t, filepath.FromSlash("/scenarios/nightly/golden/smoke.golden"), GoldenPath(s))
}

func TestBerlin_GoldenFilesBesideScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(berlinScenarios)
	require.NoError(t, err)
	for _, s := range scenarios {
		assert.FileExists(t, GoldenPath(s))
	}
}
