package allocation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/robo-trader/internal/domain"
)

func TestProjectRespectsAllCaps(t *testing.T) {
	p := NewProjector(zerolog.Nop())

	raw := map[string]float64{
		"AAPL": 0.50,
		"MSFT": 0.40,
		"JPM":  0.10,
	}
	sectorOf := map[string]string{
		"AAPL": "Information Technology",
		"MSFT": "Information Technology",
		"JPM":  "Financials",
	}
	filters := domain.Filters{
		MinCashPct:        0.05,
		MaxSecurityWeight: 0.25,
		MaxSectorWeight:   0.40,
	}

	projection, err := p.Project(raw, sectorOf, filters)
	require.NoError(t, err)

	total := 0.0
	for id, w := range projection.Weights {
		assert.LessOrEqual(t, w, filters.MaxSecurityWeight+capEpsilon, "security cap breached for %s", id)
		total += w
	}

	for _, sum := range sectorSums(projection.Weights, sectorOf) {
		assert.LessOrEqual(t, sum, filters.MaxSectorWeight+capEpsilon)
	}

	assert.GreaterOrEqual(t, projection.Cash, filters.MinCashPct-capEpsilon)
	assert.InDelta(t, 1.0, total+projection.Cash, 1e-9, "weights plus cash must sum to 1")
}

func TestProjectScalesViolatingSectorProportionally(t *testing.T) {
	p := NewProjector(zerolog.Nop())

	// Three equal weights in one sector, sector capped at half their sum
	raw := map[string]float64{"A": 0.30, "B": 0.30, "C": 0.30}
	sectorOf := map[string]string{"A": "Tech", "B": "Tech", "C": "Tech"}
	filters := domain.Filters{
		MaxSecurityWeight: 0.30,
		MaxSectorWeight:   0.45,
	}

	projection, err := p.Project(raw, sectorOf, filters)
	require.NoError(t, err)

	// Proportional scaling keeps the weights equal
	assert.InDelta(t, 0.15, projection.Weights["A"], 1e-9)
	assert.InDelta(t, 0.15, projection.Weights["B"], 1e-9)
	assert.InDelta(t, 0.15, projection.Weights["C"], 1e-9)
	assert.InDelta(t, 0.55, projection.Cash, 1e-9)
}

func TestProjectShedsExcessMassToCash(t *testing.T) {
	p := NewProjector(zerolog.Nop())

	raw := map[string]float64{"A": 0.60, "B": 0.60}
	sectorOf := map[string]string{"A": "Tech", "B": "Health"}
	filters := domain.Filters{
		MinCashPct:        0.10,
		MaxSecurityWeight: 0.50,
		MaxSectorWeight:   0.50,
	}

	projection, err := p.Project(raw, sectorOf, filters)
	require.NoError(t, err)

	// Clipped to 0.50 each, then scaled uniformly under the 0.90 ceiling
	assert.InDelta(t, 0.45, projection.Weights["A"], 1e-9)
	assert.InDelta(t, 0.45, projection.Weights["B"], 1e-9)
	assert.InDelta(t, 0.10, projection.Cash, 1e-9)
}

func TestProjectNegativeWeightsClampToZero(t *testing.T) {
	p := NewProjector(zerolog.Nop())

	raw := map[string]float64{"A": -0.20, "B": 0.40}
	sectorOf := map[string]string{"A": "Tech", "B": "Tech"}
	filters := domain.Filters{
		MaxSecurityWeight: 0.50,
		MaxSectorWeight:   0.80,
	}

	projection, err := p.Project(raw, sectorOf, filters)
	require.NoError(t, err)

	assert.Equal(t, 0.0, projection.Weights["A"])
	assert.InDelta(t, 0.40, projection.Weights["B"], 1e-9)
}

func TestProjectInfeasibleConstraints(t *testing.T) {
	p := NewProjector(zerolog.Nop())

	tests := []struct {
		name     string
		raw      map[string]float64
		sectorOf map[string]string
		filters  domain.Filters
	}{
		{
			name:     "cash floor above 1",
			raw:      map[string]float64{"A": 0.5},
			sectorOf: map[string]string{"A": "Tech"},
			filters: domain.Filters{
				MinCashPct:        1.5,
				MaxSecurityWeight: 0.5,
				MaxSectorWeight:   0.5,
			},
		},
		{
			name:     "caps leave no room under the cash floor",
			raw:      map[string]float64{"A": 0.5},
			sectorOf: map[string]string{"A": "Tech"},
			filters: domain.Filters{
				MinCashPct:        0.50,
				MaxSecurityWeight: 0.10,
				MaxSectorWeight:   0.20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Project(tt.raw, tt.sectorOf, tt.filters)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindInfeasibleConstraints))
		})
	}
}
