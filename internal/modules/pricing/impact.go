// Package pricing converts proposed order sizes into expected execution
// prices using a bounded S-curve market impact model.
package pricing

import (
	"math"

	"github.com/aristath/robo-trader/internal/domain"
)

// Pricer prices orders against a logistic impact curve. The curve shape is
// configuration, not calibration: ImpactMax caps the slippage fraction and
// Steepness controls how fast participation saturates it.
type Pricer struct {
	ImpactMax float64
	Steepness float64
}

// NewPricer creates an impact pricer
func NewPricer(impactMax, steepness float64) *Pricer {
	return &Pricer{
		ImpactMax: impactMax,
		Steepness: steepness,
	}
}

// Impact returns the slippage fraction for an unsigned participation rate:
//
//	impact(p) = impactMax * (2 / (1 + e^(-k*p)) - 1)
//
// It is zero at p=0, strictly increasing, and bounded above by impactMax.
func (p *Pricer) Impact(participation float64) float64 {
	if participation <= 0 {
		return 0
	}
	return p.ImpactMax * (2/(1+math.Exp(-p.Steepness*participation)) - 1)
}

// Price returns the expected execution price for an order. The price always
// moves against the trader: buys pay up, sells receive less.
func (p *Pricer) Price(side domain.OrderSide, quantity, referencePrice, adv float64) (float64, error) {
	if quantity == 0 {
		return referencePrice, nil
	}
	if adv <= 0 {
		return 0, domain.NewError(domain.KindInvalidLiquidity,
			"average daily volume %.2f is not positive", adv)
	}

	participation := math.Abs(quantity) / adv
	impact := p.Impact(participation)

	if side == domain.SideSell {
		return referencePrice * (1 - impact), nil
	}
	return referencePrice * (1 + impact), nil
}
