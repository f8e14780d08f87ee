package harness

import (
	"fmt"
	"strings"

	"github.com/levimarcus10/BerlinOriginal/internal/modestats"
	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// AssertionError is reported when an observed value differs from its
// reference by more than the tolerance.
type AssertionError struct {
	Type      string // Assertion type for categorization
	Subject   string // What was checked, e.g. "average score at iteration 100"
	Expected  string
	Actual    string
	Tolerance string // Empty for exact comparisons
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s: %s\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	if e.Tolerance != "" {
		fmt.Fprintf(&buf, "\n  Tolerance: %s", e.Tolerance)
	}
	return buf.String()
}

// evaluation holds what the assertions are checked against.
type evaluation struct {
	scores *scorestats.History
	modes  *modestats.ModeStats
}

// evaluateAll checks every assertion and returns the failures in
// assertion order.
func (ev *evaluation) evaluateAll(assertions []Assertion) []*AssertionError {
	var failures []*AssertionError
	for i := range assertions {
		if f := ev.evaluate(&assertions[i]); f != nil {
			failures = append(failures, f)
		}
	}
	return failures
}

func (ev *evaluation) evaluate(a *Assertion) *AssertionError {
	switch a.Type {
	case AssertScore:
		return ev.assertScore(a)
	case AssertModeShare:
		return ev.assertModeShare(a)
	case AssertModeCount:
		return ev.assertModeCount(a)
	case AssertTripTotal:
		return ev.assertTripTotal(a)
	default:
		return &AssertionError{
			Type:     a.Type,
			Subject:  "unknown assertion type",
			Expected: "one of score, mode_share, mode_count, trip_total",
			Actual:   a.Type,
		}
	}
}

func (ev *evaluation) assertScore(a *Assertion) *AssertionError {
	item, _ := a.scoreItem()
	tol := a.tolerance()
	subject := fmt.Sprintf("%s score at iteration %d", item, a.Iteration)

	actual, ok := ev.scores.Value(item, a.Iteration)
	if !ok {
		return &AssertionError{
			Type:      AssertScore,
			Subject:   subject,
			Expected:  formatFloat(a.Expect),
			Actual:    "not recorded",
			Tolerance: tol.String(),
		}
	}
	if !tol.Within(a.Expect, actual) {
		return &AssertionError{
			Type:      AssertScore,
			Subject:   subject,
			Expected:  formatFloat(a.Expect),
			Actual:    fmt.Sprintf("%s (diff %g)", formatFloat(actual), actual-a.Expect),
			Tolerance: tol.String(),
		}
	}
	return nil
}

// assertModeShare treats a mode that never occurs as a share of zero.
func (ev *evaluation) assertModeShare(a *Assertion) *AssertionError {
	tol := a.tolerance()
	actual := ev.modes.Share(a.Mode)
	if !tol.Within(a.Expect, actual) {
		return &AssertionError{
			Type:      AssertModeShare,
			Subject:   fmt.Sprintf("share of mode %s", a.Mode),
			Expected:  formatFloat(a.Expect),
			Actual:    fmt.Sprintf("%s (%d of %d trips)", formatFloat(actual), ev.modes.Counts[a.Mode], ev.modes.Total),
			Tolerance: tol.String(),
		}
	}
	return nil
}

func (ev *evaluation) assertModeCount(a *Assertion) *AssertionError {
	actual := ev.modes.Counts[a.Mode]
	if actual != a.Count {
		return &AssertionError{
			Type:     AssertModeCount,
			Subject:  fmt.Sprintf("trips with mode %s", a.Mode),
			Expected: fmt.Sprintf("%d", a.Count),
			Actual:   fmt.Sprintf("%d", actual),
		}
	}
	return nil
}

func (ev *evaluation) assertTripTotal(a *Assertion) *AssertionError {
	if ev.modes.Total != a.Count {
		return &AssertionError{
			Type:     AssertTripTotal,
			Subject:  "total trips",
			Expected: fmt.Sprintf("%d", a.Count),
			Actual:   fmt.Sprintf("%d", ev.modes.Total),
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%v", f)
}
