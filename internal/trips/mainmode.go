package trips

import (
	"errors"

	"github.com/levimarcus10/BerlinOriginal/internal/population"
)

// ErrNoLegs is returned when a trip contains no legs.
var ErrNoLegs = errors.New("trip has no legs")

// MainModeIdentifier resolves the single mode a trip counts towards.
type MainModeIdentifier interface {
	IdentifyMainMode(elements []population.PlanElement) (string, error)
}

// DefaultPrecedence ranks modes from most to least dominant: motorized
// modes win over active ones when a trip mixes them.
var DefaultPrecedence = []string{"freight", "car", "pt", "ride", "bicycle", "walk"}

// DefaultAuxiliary maps walking legs that only feed another mode to the
// mode a trip made solely of them counts as.
var DefaultAuxiliary = map[string]string{
	"transit_walk":     "pt",
	"access_walk":      "walk",
	"egress_walk":      "walk",
	"non_network_walk": "walk",
}

// PrecedenceIdentifier picks the highest ranked mode among a trip's legs.
//
// Auxiliary legs are ignored whenever the trip has any other leg. Modes
// missing from Order rank below all listed modes, and ties between them go
// to the first one in the trip.
type PrecedenceIdentifier struct {
	Order     []string
	Auxiliary map[string]string
}

// NewPrecedenceIdentifier returns an identifier with the default ranking.
func NewPrecedenceIdentifier() *PrecedenceIdentifier {
	return &PrecedenceIdentifier{Order: DefaultPrecedence, Auxiliary: DefaultAuxiliary}
}

// IdentifyMainMode implements MainModeIdentifier.
func (p *PrecedenceIdentifier) IdentifyMainMode(elements []population.PlanElement) (string, error) {
	rank := make(map[string]int, len(p.Order))
	for i, m := range p.Order {
		if _, dup := rank[m]; !dup {
			rank[m] = i
		}
	}
	rankOf := func(mode string) int {
		if r, ok := rank[mode]; ok {
			return r
		}
		return len(p.Order)
	}

	var (
		best     string
		bestRank = -1
		firstAux string
		sawLeg   bool
	)
	for _, el := range elements {
		leg, ok := el.(*population.Leg)
		if !ok {
			continue
		}
		sawLeg = true
		if _, aux := p.Auxiliary[leg.Mode]; aux {
			if firstAux == "" {
				firstAux = leg.Mode
			}
			continue
		}
		if r := rankOf(leg.Mode); bestRank < 0 || r < bestRank {
			best, bestRank = leg.Mode, r
		}
	}

	switch {
	case !sawLeg:
		return "", ErrNoLegs
	case bestRank >= 0:
		return best, nil
	default:
		return p.Auxiliary[firstAux], nil
	}
}
