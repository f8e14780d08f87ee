package testutil

import (
	"fmt"
	"sort"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
)

// PlanBuilder assembles plans element by element:
//
//	plan := testutil.NewPlan().Act("home").Leg("car").Act("work").Build()
type PlanBuilder struct {
	plan population.Plan
}

// NewPlan starts an empty plan.
func NewPlan() *PlanBuilder {
	return &PlanBuilder{}
}

// Act appends an activity.
func (b *PlanBuilder) Act(activityType string) *PlanBuilder {
	b.plan.Elements = append(b.plan.Elements, &population.Activity{Type: activityType})
	return b
}

// Leg appends a leg.
func (b *PlanBuilder) Leg(mode string) *PlanBuilder {
	b.plan.Elements = append(b.plan.Elements, &population.Leg{Mode: mode})
	return b
}

// Trip appends the legs and stage activities of one trip followed by the
// destination activity. Main modes with a network route get the access and
// egress walks the simulation inserts; pt gets transit walks.
func (b *PlanBuilder) Trip(mode, destination string) *PlanBuilder {
	switch mode {
	case "walk":
		b.Leg("walk")
	case "pt":
		b.Leg("transit_walk").Act("pt interaction").
			Leg("pt").Act("pt interaction").
			Leg("transit_walk")
	default:
		stage := mode + " interaction"
		b.Leg("non_network_walk").Act(stage).
			Leg(mode).Act(stage).
			Leg("non_network_walk")
	}
	return b.Act(destination)
}

// Score sets the plan score.
func (b *PlanBuilder) Score(s float64) *PlanBuilder {
	b.plan.Score = &s
	return b
}

// Build returns the plan.
func (b *PlanBuilder) Build() *population.Plan {
	p := b.plan
	return &p
}

// Person wraps a single selected plan in a person.
func Person(id string, plan *population.Plan) *population.Person {
	return &population.Person{ID: id, Plans: []*population.Plan{plan}, Selected: 0}
}

// PopulationWithModeCounts builds persons whose selected plans contain
// exactly counts[mode] trips per mode, at most tripsPerPerson trips each.
// Persons alternate between home and work.
func PopulationWithModeCounts(counts map[string]int, tripsPerPerson int) (*population.Population, error) {
	if tripsPerPerson < 1 {
		tripsPerPerson = 1
	}
	modes := make([]string, 0, len(counts))
	for m := range counts {
		modes = append(modes, m)
	}
	sort.Strings(modes)

	pop := population.New()
	n := 0
	for _, mode := range modes {
		remaining := counts[mode]
		for remaining > 0 {
			k := min(remaining, tripsPerPerson)
			b := NewPlan().Act("home")
			for i := 0; i < k; i++ {
				dest := "work"
				if i%2 == 1 {
					dest = "home"
				}
				b.Trip(mode, dest)
			}
			n++
			if err := pop.Add(Person(fmt.Sprintf("%s_%06d", mode, n), b.Build())); err != nil {
				return nil, err
			}
			remaining -= k
		}
	}
	return pop, nil
}
