package rebalancing

import (
	"math"
	"sort"

	"github.com/aristath/robo-trader/internal/domain"
)

// Delta is one security's distance between current and target allocation,
// expressed both as value and as a lot-rounded quantity.
type Delta struct {
	SecurityID string
	Side       domain.OrderSide
	Quantity   float64
	Value      float64 // Signed target value delta before rounding
}

// Translator converts weight deltas into discrete order quantities
type Translator struct {
	// LotSize is the smallest tradable increment in shares. Quantities
	// round toward zero to a multiple of it; 1 means whole shares only.
	LotSize float64
}

// NewTranslator creates a delta translator
func NewTranslator(lotSize float64) *Translator {
	if lotSize <= 0 {
		lotSize = 1
	}
	return &Translator{LotSize: lotSize}
}

// Translate computes per-security deltas between current and target weights.
// Zero-quantity deltas are dropped: they are no-ops, not orders. Securities
// without a usable reference price are skipped (their current weight is
// already zero in any consistent snapshot).
func (t *Translator) Translate(
	current map[string]float64,
	target map[string]float64,
	nav float64,
	prices map[string]float64,
) []Delta {
	ids := make(map[string]bool, len(current)+len(target))
	for id := range current {
		ids[id] = true
	}
	for id := range target {
		ids[id] = true
	}

	var deltas []Delta
	for id := range ids {
		deltaValue := (target[id] - current[id]) * nav
		if deltaValue == 0 {
			continue
		}

		price := prices[id]
		if price <= 0 {
			continue
		}

		quantity := t.roundToLot(math.Abs(deltaValue) / price)
		if quantity == 0 {
			continue
		}

		side := domain.SideBuy
		if deltaValue < 0 {
			side = domain.SideSell
		}

		deltas = append(deltas, Delta{
			SecurityID: id,
			Side:       side,
			Quantity:   quantity,
			Value:      deltaValue,
		})
	}

	// Deterministic output order for stable responses and tests
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].SecurityID < deltas[j].SecurityID })

	return deltas
}

// roundToLot rounds a share quantity toward zero to a lot multiple
func (t *Translator) roundToLot(quantity float64) float64 {
	return math.Trunc(quantity/t.LotSize) * t.LotSize
}
