package harness

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats/scalar"
	"gopkg.in/yaml.v3"
)

// Tolerance is the maximum absolute difference accepted between a reference
// value and an observed one.
type Tolerance struct {
	Name  string
	Value float64
}

var (
	// Epsilon is used where the run must reproduce the reference exactly,
	// such as the initial scores that depend only on the input plans.
	Epsilon = Tolerance{Name: "epsilon", Value: 1e-10}

	// Regression absorbs the drift of later iterations and mode shares.
	Regression = Tolerance{Name: "regression", Value: 0.01}
)

// ParseTolerance accepts a named tolerance or a non-negative number.
func ParseTolerance(s string) (Tolerance, error) {
	switch s {
	case Epsilon.Name:
		return Epsilon, nil
	case Regression.Name:
		return Regression, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return Tolerance{}, fmt.Errorf("invalid tolerance %q: want epsilon, regression or a non-negative number", s)
	}
	return Tolerance{Value: v}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Tolerance) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: tolerance must be a scalar", node.Line)
	}
	parsed, err := ParseTolerance(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}

// Within reports whether actual is within the tolerance of expected.
func (t Tolerance) Within(expected, actual float64) bool {
	return scalar.EqualWithinAbs(expected, actual, t.Value)
}

func (t Tolerance) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s (%g)", t.Name, t.Value)
	}
	return strconv.FormatFloat(t.Value, 'g', -1, 64)
}
