// Package allocation computes per-account target weight vectors: blending
// current allocations with the sentiment signal, then projecting the result
// onto the feasible region defined by the request filters.
package allocation

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// maxProjectionIterations bounds the clip/scale loop. Security and sector
// caps can interact cyclically, so the loop must not run unbounded.
const maxProjectionIterations = 50

// capEpsilon tolerates float drift when checking cap violations
const capEpsilon = 1e-9

// Projection is a feasible weight vector for one account. Weights plus Cash
// sum to exactly 1.
type Projection struct {
	Weights map[string]float64 `json:"weights"`
	Cash    float64            `json:"cash"`
}

// Projector maps raw target weights onto the nearest feasible vector under
// the min-cash, per-security, and per-sector caps.
type Projector struct {
	log zerolog.Logger
}

// NewProjector creates a constraint projector
func NewProjector(log zerolog.Logger) *Projector {
	return &Projector{
		log: log.With().Str("service", "projector").Logger(),
	}
}

// Project scales the raw weight vector until every cap is satisfied:
// clip each security to its cap, scale down violating sectors
// proportionally, then scale everything uniformly under the cash floor.
// Whatever mass the caps shed is assigned to cash.
func (p *Projector) Project(raw map[string]float64, sectorOf map[string]string, filters domain.Filters) (Projection, error) {
	if filters.MinCashPct > 1 {
		return Projection{}, domain.NewError(domain.KindInfeasibleConstraints, "minCashPct %.2f exceeds 1", filters.MinCashPct)
	}

	if err := p.checkCapacity(raw, sectorOf, filters); err != nil {
		return Projection{}, err
	}

	weights := make(map[string]float64, len(raw))
	for id, w := range raw {
		if w < 0 {
			w = 0
		}
		weights[id] = w
	}

	converged := false
	for i := 0; i < maxProjectionIterations; i++ {
		// (a) clip every security to its cap
		for id, w := range weights {
			if w > filters.MaxSecurityWeight {
				weights[id] = filters.MaxSecurityWeight
			}
		}

		// (b) scale down violating sectors proportionally
		for sector, sum := range sectorSums(weights, sectorOf) {
			if sum > filters.MaxSectorWeight+capEpsilon {
				scale := filters.MaxSectorWeight / sum
				for id, w := range weights {
					if sectorOf[id] == sector {
						weights[id] = w * scale
					}
				}
			}
		}

		// (c) scale uniformly so cash keeps its floor
		investable := 1 - filters.MinCashPct
		total := weightSum(weights)
		if total > investable+capEpsilon {
			scale := investable / total
			for id, w := range weights {
				weights[id] = w * scale
			}
		}

		if !p.violated(weights, sectorOf, filters) {
			converged = true
			break
		}
	}

	if !converged {
		return Projection{}, domain.NewError(domain.KindInfeasibleConstraints,
			"caps still violated after %d iterations", maxProjectionIterations)
	}

	total := weightSum(weights)
	return Projection{
		Weights: weights,
		Cash:    1 - total,
	}, nil
}

// checkCapacity rejects filters under which the investable universe cannot
// even hold as much weight as the cash floor demands. Such filters leave the
// projector no room to place the non-cash mass and are treated as a hard
// failure rather than silently parking everything in cash.
func (p *Projector) checkCapacity(raw map[string]float64, sectorOf map[string]string, filters domain.Filters) error {
	if filters.MinCashPct == 0 {
		return nil
	}

	members := make(map[string]int)
	for id := range raw {
		members[sectorOf[id]]++
	}

	capacity := 0.0
	for _, count := range members {
		capacity += math.Min(filters.MaxSectorWeight, float64(count)*filters.MaxSecurityWeight)
	}

	if capacity < filters.MinCashPct {
		return domain.NewError(domain.KindInfeasibleConstraints,
			"sector caps restrict investable weight to %.4f, below the %.4f cash floor", capacity, filters.MinCashPct)
	}

	return nil
}

// violated reports whether any cap is still breached
func (p *Projector) violated(weights map[string]float64, sectorOf map[string]string, filters domain.Filters) bool {
	for _, w := range weights {
		if w > filters.MaxSecurityWeight+capEpsilon {
			return true
		}
	}
	for _, sum := range sectorSums(weights, sectorOf) {
		if sum > filters.MaxSectorWeight+capEpsilon {
			return true
		}
	}
	return weightSum(weights) > 1-filters.MinCashPct+capEpsilon
}

func sectorSums(weights map[string]float64, sectorOf map[string]string) map[string]float64 {
	sums := make(map[string]float64)
	for id, w := range weights {
		sums[sectorOf[id]] += w
	}
	return sums
}

func weightSum(weights map[string]float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	return total
}
