package harness

import (
	"fmt"
)

// ErrorKind says which stage of a run failed.
type ErrorKind string

const (
	// KindConfig covers unreadable scenarios, configs and output directories.
	KindConfig ErrorKind = "config"

	// KindEngine covers failures of the simulation itself or its outputs.
	KindEngine ErrorKind = "engine"

	// KindAnalysis covers inconsistent score histories and plans that cannot
	// be split into trips.
	KindAnalysis ErrorKind = "analysis"
)

// RunError is returned when a scenario could not be run to completion.
// Assertion mismatches are not RunErrors; they are reported in
// Result.Failures.
type RunError struct {
	Kind     ErrorKind
	Scenario string
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("scenario %s: %s error: %v", e.Scenario, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors are the failure messages, one per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Failures are the typed failures behind Errors.
	Failures []*AssertionError `json:"-"`

	// Snapshot holds the observed values the assertions were checked
	// against.
	Snapshot *Snapshot `json:"snapshot"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddFailure records a failed assertion and marks the result as failed.
func (r *Result) AddFailure(f *AssertionError) {
	r.Failures = append(r.Failures, f)
	r.Errors = append(r.Errors, f.Error())
	r.Pass = false
}

// Snapshot is the part of a run worth pinning in a golden file: the scores
// at every asserted iteration and the mode distribution.
type Snapshot struct {
	Scenario      string                     `json:"scenario"`
	LastIteration int                        `json:"last_iteration"`
	Scores        map[string]map[int]float64 `json:"scores"`
	TripTotal     int                        `json:"trip_total,omitempty"`
	ModeCounts    map[string]int             `json:"mode_counts,omitempty"`
	ModeShares    map[string]float64         `json:"mode_shares,omitempty"`
}

// canonicalMap converts the snapshot into the value space of
// canonical.Marshal.
func (s *Snapshot) canonicalMap() map[string]any {
	scores := make(map[string]any, len(s.Scores))
	for item, series := range s.Scores {
		byIter := make(map[string]any, len(series))
		for it, v := range series {
			byIter[fmt.Sprintf("%d", it)] = v
		}
		scores[item] = byIter
	}

	out := map[string]any{
		"scenario":       s.Scenario,
		"last_iteration": int64(s.LastIteration),
		"scores":         scores,
	}
	if s.ModeCounts != nil {
		counts := make(map[string]any, len(s.ModeCounts))
		for m, c := range s.ModeCounts {
			counts[m] = int64(c)
		}
		out["mode_counts"] = counts
		out["trip_total"] = int64(s.TripTotal)
	}
	if s.ModeShares != nil {
		shares := make(map[string]any, len(s.ModeShares))
		for m, v := range s.ModeShares {
			shares[m] = v
		}
		out["mode_shares"] = shares
	}
	return out
}
