package rebalancing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/robo-trader/internal/domain"
)

func TestTranslateBuysAndSells(t *testing.T) {
	tr := NewTranslator(1)

	current := map[string]float64{"AAPL": 0.20, "MSFT": 0.10}
	target := map[string]float64{"AAPL": 0.10, "MSFT": 0.10, "NVDA": 0.05}
	prices := map[string]float64{"AAPL": 200, "MSFT": 400, "NVDA": 100}

	deltas := tr.Translate(current, target, 100000, prices)
	require.Len(t, deltas, 2, "MSFT is unchanged and produces no delta")

	// Sorted by security id
	assert.Equal(t, "AAPL", deltas[0].SecurityID)
	assert.Equal(t, domain.SideSell, deltas[0].Side)
	assert.Equal(t, 50.0, deltas[0].Quantity) // 10000 / 200

	assert.Equal(t, "NVDA", deltas[1].SecurityID)
	assert.Equal(t, domain.SideBuy, deltas[1].Side)
	assert.Equal(t, 50.0, deltas[1].Quantity) // 5000 / 100
}

func TestTranslateRoundsTowardZero(t *testing.T) {
	tests := []struct {
		name    string
		lotSize float64
		target  float64
		price   float64
		want    float64
	}{
		{name: "whole shares truncate", lotSize: 1, target: 0.10, price: 227.13, want: 44},  // 44.02 shares
		{name: "lot of 10 truncates", lotSize: 10, target: 0.10, price: 227.13, want: 40},   // 44.02 -> 40
		{name: "fractional lots", lotSize: 0.01, target: 0.10, price: 227.13, want: 44.02},  // truncated at 2dp
		{name: "sub-lot delta vanishes", lotSize: 100, target: 0.10, price: 227.13, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(tt.lotSize)
			deltas := tr.Translate(nil, map[string]float64{"AAPL": tt.target}, 100000, map[string]float64{"AAPL": tt.price})

			if tt.want == 0 {
				assert.Empty(t, deltas, "deltas below one lot are dropped")
				return
			}
			require.Len(t, deltas, 1)
			assert.InDelta(t, tt.want, deltas[0].Quantity, 1e-9)
		})
	}
}

func TestTranslateConservesValue(t *testing.T) {
	tr := NewTranslator(1)
	nav := 250000.0

	current := map[string]float64{"AAPL": 0.30, "MSFT": 0.15, "V": 0.05}
	target := map[string]float64{"AAPL": 0.10, "MSFT": 0.25, "NVDA": 0.20}
	prices := map[string]float64{"AAPL": 227.13, "MSFT": 430.55, "NVDA": 116.22, "V": 278.90}

	deltas := tr.Translate(current, target, nav, prices)
	require.NotEmpty(t, deltas)

	// No value leakage: the signed deltas sum to the total weight shift
	// scaled by NAV. Lot rounding affects quantities, never Value.
	totalValue := 0.0
	for _, d := range deltas {
		totalValue += d.Value
	}

	currentTotal := 0.0
	for _, w := range current {
		currentTotal += w
	}
	targetTotal := 0.0
	for _, w := range target {
		targetTotal += w
	}

	assert.InDelta(t, (targetTotal-currentTotal)*nav, totalValue, 1e-6)
}

func TestTranslateSkipsUnpricedSecurities(t *testing.T) {
	tr := NewTranslator(1)

	deltas := tr.Translate(
		map[string]float64{"GHOST": 0.10},
		map[string]float64{"GHOST": 0.0},
		100000,
		map[string]float64{}, // no price for GHOST
	)

	assert.Empty(t, deltas)
}

func TestTranslateDefaultsInvalidLotSize(t *testing.T) {
	tr := NewTranslator(0)
	assert.Equal(t, 1.0, tr.LotSize)

	tr = NewTranslator(-5)
	assert.Equal(t, 1.0, tr.LotSize)
}
