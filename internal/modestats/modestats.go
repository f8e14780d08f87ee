// Package modestats counts trips per main mode over a population's selected
// plans.
package modestats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/trips"
)

// ModeStats holds per-mode trip counts.
type ModeStats struct {
	Counts map[string]int
	Total  int
}

// Share is one mode's fraction of all trips.
type Share struct {
	Mode  string  `json:"mode"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// AnalysisError reports a trip whose main mode could not be identified.
type AnalysisError struct {
	PersonID  string
	TripIndex int
	Err       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("person %s trip %d: %v", e.PersonID, e.TripIndex, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Analyze decomposes each person's selected plan into trips and counts
// them by main mode. Persons without a selected plan contribute nothing.
func Analyze(pop *population.Population, stages trips.StageActivities, id trips.MainModeIdentifier) (*ModeStats, error) {
	ms := &ModeStats{Counts: make(map[string]int)}
	for _, person := range pop.Persons() {
		for i, trip := range trips.Of(person.SelectedPlan(), stages) {
			mode, err := id.IdentifyMainMode(trip.Elements)
			if err != nil {
				return nil, &AnalysisError{PersonID: person.ID, TripIndex: i, Err: err}
			}
			ms.Counts[mode]++
			ms.Total++
		}
	}
	return ms, nil
}

// Modes returns the observed modes in alphabetical order.
func (m *ModeStats) Modes() []string {
	out := make([]string, 0, len(m.Counts))
	for mode := range m.Counts {
		out = append(out, mode)
	}
	sort.Strings(out)
	return out
}

// Share returns mode's fraction of all trips; 0 for an absent mode or an
// empty population.
func (m *ModeStats) Share(mode string) float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Counts[mode]) / float64(m.Total)
}

// Shares returns every mode's share, alphabetically by mode.
func (m *ModeStats) Shares() []Share {
	modes := m.Modes()
	out := make([]Share, len(modes))
	for i, mode := range modes {
		out[i] = Share{Mode: mode, Count: m.Counts[mode], Share: m.Share(mode)}
	}
	return out
}

// Check verifies that the per-mode counts add up to the trip total and
// that the shares sum to one.
func (m *ModeStats) Check() error {
	sum := 0
	for _, c := range m.Counts {
		sum += c
	}
	if sum != m.Total {
		return fmt.Errorf("mode counts sum to %d, expected %d trips", sum, m.Total)
	}
	if m.Total == 0 {
		return nil
	}
	shares := make([]float64, 0, len(m.Counts))
	for _, s := range m.Shares() {
		shares = append(shares, s.Share)
	}
	if total := floats.Sum(shares); !scalar.EqualWithinAbs(total, 1, 1e-9) {
		return fmt.Errorf("mode shares sum to %v", total)
	}
	return nil
}
