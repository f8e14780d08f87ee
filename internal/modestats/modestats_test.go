package modestats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/trips"
)

func person(t *testing.T, pop *population.Population, id string, elements ...population.PlanElement) {
	t.Helper()
	require.NoError(t, pop.Add(&population.Person{
		ID:    id,
		Plans: []*population.Plan{{Elements: elements}},
	}))
}

func a(typ string) *population.Activity { return &population.Activity{Type: typ} }
func l(mode string) *population.Leg     { return &population.Leg{Mode: mode} }

func samplePopulation(t *testing.T) *population.Population {
	pop := population.New()
	person(t, pop, "1", a("home"), l("car"), a("work"), l("car"), a("home"))
	person(t, pop, "2", a("home"), l("access_walk"), a("pt interaction"), l("pt"), a("pt interaction"), l("egress_walk"), a("work"),
		l("walk"), a("home"))
	person(t, pop, "3", a("home"), l("bicycle"), a("shop"), l("bicycle"), a("home"))
	person(t, pop, "4", a("home"))
	return pop
}

func TestAnalyze_CountsByMainMode(t *testing.T) {
	ms, err := Analyze(samplePopulation(t), trips.DefaultStageActivities(), trips.NewPrecedenceIdentifier())
	require.NoError(t, err)

	assert.Equal(t, 6, ms.Total)
	assert.Equal(t, map[string]int{"car": 2, "pt": 1, "walk": 1, "bicycle": 2}, ms.Counts)
	assert.Equal(t, []string{"bicycle", "car", "pt", "walk"}, ms.Modes())
	assert.InDelta(t, 2.0/6.0, ms.Share("car"), 1e-12)
	assert.Equal(t, 0.0, ms.Share("freight"))
	assert.NoError(t, ms.Check())
}

func TestAnalyze_UsesSelectedPlanOnly(t *testing.T) {
	pop := population.New()
	require.NoError(t, pop.Add(&population.Person{
		ID: "1",
		Plans: []*population.Plan{
			{Elements: []population.PlanElement{a("home"), l("car"), a("work")}},
			{Elements: []population.PlanElement{a("home"), l("ride"), a("work")}},
		},
		Selected: 1,
	}))

	ms, err := Analyze(pop, trips.DefaultStageActivities(), trips.NewPrecedenceIdentifier())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ride": 1}, ms.Counts)
}

func TestShares_Alphabetical(t *testing.T) {
	ms := &ModeStats{Counts: map[string]int{"walk": 1, "car": 3}, Total: 4}
	shares := ms.Shares()
	require.Len(t, shares, 2)
	assert.Equal(t, Share{Mode: "car", Count: 3, Share: 0.75}, shares[0])
	assert.Equal(t, Share{Mode: "walk", Count: 1, Share: 0.25}, shares[1])
}

func TestEmptyPopulation(t *testing.T) {
	ms, err := Analyze(population.New(), trips.DefaultStageActivities(), trips.NewPrecedenceIdentifier())
	require.NoError(t, err)
	assert.Equal(t, 0, ms.Total)
	assert.Equal(t, 0.0, ms.Share("car"))
	assert.NoError(t, ms.Check())
}

func TestCheck_DetectsMismatch(t *testing.T) {
	ms := &ModeStats{Counts: map[string]int{"car": 3}, Total: 4}
	assert.Error(t, ms.Check())
}

type failingIdentifier struct{}

func (failingIdentifier) IdentifyMainMode([]population.PlanElement) (string, error) {
	return "", errors.New("unknown leg sequence")
}

func TestAnalyze_IdentifierError(t *testing.T) {
	_, err := Analyze(samplePopulation(t), trips.DefaultStageActivities(), failingIdentifier{})
	require.Error(t, err)

	var aerr *AnalysisError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "1", aerr.PersonID)
	assert.Equal(t, 0, aerr.TripIndex)
}
