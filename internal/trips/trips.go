// Package trips decomposes plans into trips and assigns each trip a single
// main mode.
//
// A trip is everything between two consecutive "real" activities. Stage
// activities (interaction points such as "pt interaction") do not end a trip;
// they are part of the trip they sit in.
package trips

import (
	"strings"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
)

// StageActivities is the set of activity types that do not bound trips.
type StageActivities struct {
	types             map[string]struct{}
	interactionSuffix bool
}

// NewStageActivities builds a set from explicit activity types.
func NewStageActivities(types ...string) StageActivities {
	s := StageActivities{types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		s.types[t] = struct{}{}
	}
	return s
}

// DefaultStageActivities returns the interaction types used by the Berlin
// scenario.
func DefaultStageActivities() StageActivities {
	return NewStageActivities(
		"pt interaction",
		"car interaction",
		"ride interaction",
		"bicycle interaction",
		"freight interaction",
	)
}

// WithInteractionSuffix additionally treats every type ending in
// " interaction" as a stage activity.
func (s StageActivities) WithInteractionSuffix() StageActivities {
	out := NewStageActivities(s.Types()...)
	out.interactionSuffix = true
	return out
}

// IsStage reports whether activityType is a stage activity.
func (s StageActivities) IsStage(activityType string) bool {
	if _, ok := s.types[activityType]; ok {
		return true
	}
	return s.interactionSuffix && strings.HasSuffix(activityType, " interaction")
}

// Types returns the explicit types in the set.
func (s StageActivities) Types() []string {
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	return out
}

// Trip is the run of plan elements between two real activities.
type Trip struct {
	Origin      *population.Activity
	Destination *population.Activity
	Elements    []population.PlanElement
}

// Legs returns the trip's legs in order.
func (t Trip) Legs() []*population.Leg {
	var legs []*population.Leg
	for _, el := range t.Elements {
		if leg, ok := el.(*population.Leg); ok {
			legs = append(legs, leg)
		}
	}
	return legs
}

// Of splits a plan into trips. Two adjacent real activities yield no trip.
// Elements after the last real activity are dropped since they have no
// destination.
func Of(plan *population.Plan, stages StageActivities) []Trip {
	if plan == nil {
		return nil
	}

	var (
		out     []Trip
		origin  *population.Activity
		pending []population.PlanElement
	)
	for _, el := range plan.Elements {
		act, ok := el.(*population.Activity)
		if !ok || stages.IsStage(act.Type) {
			if origin != nil {
				pending = append(pending, el)
			}
			continue
		}
		if origin != nil && len(pending) > 0 {
			out = append(out, Trip{Origin: origin, Destination: act, Elements: pending})
		}
		origin = act
		pending = nil
	}
	return out
}
