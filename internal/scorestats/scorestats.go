// Package scorestats holds per-iteration aggregate plan scores as written by
// the simulation engine to scorestats.txt.
package scorestats

import (
	"fmt"
	"sort"
)

// Item is one of the aggregate statistics recorded per iteration.
type Item string

const (
	Executed Item = "executed"
	Worst    Item = "worst"
	Average  Item = "average"
	Best     Item = "best"
)

// Items lists all statistics in file column order.
var Items = []Item{Executed, Worst, Average, Best}

// Label returns the column header used in scorestats.txt.
func (i Item) Label() string {
	switch i {
	case Executed:
		return "avg. EXECUTED"
	case Worst:
		return "avg. WORST"
	case Average:
		return "avg. AVG"
	case Best:
		return "avg. BEST"
	default:
		return string(i)
	}
}

// ParseItem accepts an item name ("average") or its column label ("avg. AVG").
func ParseItem(s string) (Item, error) {
	for _, it := range Items {
		if s == string(it) || s == it.Label() {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown score item %q", s)
}

// History maps statistic kind to iteration to value.
type History struct {
	series map[Item]map[int]float64
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{series: make(map[Item]map[int]float64)}
}

// Set records a value.
func (h *History) Set(item Item, iteration int, value float64) {
	s, ok := h.series[item]
	if !ok {
		s = make(map[int]float64)
		h.series[item] = s
	}
	s[iteration] = value
}

// Value returns the value for item at iteration.
func (h *History) Value(item Item, iteration int) (float64, bool) {
	v, ok := h.series[item][iteration]
	return v, ok
}

// Series returns a copy of the iteration -> value map for item.
func (h *History) Series(item Item) map[int]float64 {
	out := make(map[int]float64, len(h.series[item]))
	for k, v := range h.series[item] {
		out[k] = v
	}
	return out
}

// Iterations returns all iterations recorded for any item, ascending.
func (h *History) Iterations() []int {
	seen := make(map[int]struct{})
	for _, s := range h.series {
		for it := range s {
			seen[it] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for it := range seen {
		out = append(out, it)
	}
	sort.Ints(out)
	return out
}

// LastIteration returns the highest recorded iteration, or -1 when empty.
func (h *History) LastIteration() int {
	its := h.Iterations()
	if len(its) == 0 {
		return -1
	}
	return its[len(its)-1]
}

// Validate checks that every recorded item covers iterations 0..n without
// gaps and that all items cover the same range.
func (h *History) Validate() error {
	its := h.Iterations()
	for i, it := range its {
		if it != i {
			return fmt.Errorf("score history is not contiguous: expected iteration %d, found %d", i, it)
		}
	}
	for _, item := range Items {
		s, ok := h.series[item]
		if !ok {
			continue
		}
		if len(s) != len(its) {
			return fmt.Errorf("score history for %s covers %d of %d iterations", item, len(s), len(its))
		}
	}
	return nil
}
