// Package population models agents and their daily plans: alternating
// activities and legs, one plan per agent marked as selected.
package population

import (
	"fmt"
	"sort"
)

// PlanElement is either an *Activity or a *Leg.
type PlanElement interface {
	planElement()
}

// Activity is a stay at a location. Stage activities such as
// "pt interaction" are activities too; trip decomposition decides which
// ones bound a trip.
type Activity struct {
	Type    string
	Link    string
	X, Y    float64
	EndTime string
}

func (*Activity) planElement() {}

// Leg is a movement between two activities with a single mode.
type Leg struct {
	Mode     string
	DepTime  string
	TravTime string
}

func (*Leg) planElement() {}

// Plan is an ordered sequence of plan elements, starting and ending with an
// activity.
type Plan struct {
	Score    *float64
	Elements []PlanElement
}

// Validate checks the activity/leg alternation.
func (p *Plan) Validate() error {
	if len(p.Elements) == 0 {
		return nil
	}
	for i, el := range p.Elements {
		_, isAct := el.(*Activity)
		if i%2 == 0 && !isAct {
			return fmt.Errorf("element %d: expected activity, found leg", i)
		}
		if i%2 == 1 && isAct {
			return fmt.Errorf("element %d: expected leg, found activity", i)
		}
	}
	if len(p.Elements)%2 == 0 {
		return fmt.Errorf("plan ends with a leg")
	}
	return nil
}

// Person is an agent with its plans.
type Person struct {
	ID       string
	Plans    []*Plan
	Selected int
}

// SelectedPlan returns the plan the agent executed, or nil if it has none.
func (p *Person) SelectedPlan() *Plan {
	if p.Selected < 0 || p.Selected >= len(p.Plans) {
		return nil
	}
	return p.Plans[p.Selected]
}

// Population maps agent IDs to agents.
type Population struct {
	persons map[string]*Person
}

// New creates an empty population.
func New() *Population {
	return &Population{persons: make(map[string]*Person)}
}

// Add inserts a person. Duplicate IDs are rejected.
func (p *Population) Add(person *Person) error {
	if person.ID == "" {
		return fmt.Errorf("person id is required")
	}
	if _, ok := p.persons[person.ID]; ok {
		return fmt.Errorf("duplicate person id %q", person.ID)
	}
	p.persons[person.ID] = person
	return nil
}

// Get looks up a person by ID.
func (p *Population) Get(id string) (*Person, bool) {
	person, ok := p.persons[id]
	return person, ok
}

// Len returns the number of persons.
func (p *Population) Len() int {
	return len(p.persons)
}

// Persons returns all persons ordered by ID.
func (p *Population) Persons() []*Person {
	out := make([]*Person, 0, len(p.persons))
	for _, person := range p.persons {
		out = append(out, person)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
