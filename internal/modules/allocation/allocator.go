package allocation

import (
	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
	"github.com/aristath/robo-trader/pkg/formulas"
)

// Rescaling functions for sentiment normalization. The exact function is a
// configuration choice, not a property of the signal.
const (
	NormalizationSoftmax = "softmax"
	NormalizationMinMax  = "minmax"
)

// Allocator blends an account's current weights with the signal-derived
// distribution and projects the result onto the feasible region.
type Allocator struct {
	projector     *Projector
	temperature   float64
	normalization string
	log           zerolog.Logger
}

// NewAllocator creates an allocator. Temperature feeds the softmax signal
// normalization (1.0 is the documented default); normalization selects the
// rescaling function and defaults to softmax.
func NewAllocator(projector *Projector, temperature float64, normalization string, log zerolog.Logger) *Allocator {
	if normalization == "" {
		normalization = NormalizationSoftmax
	}
	return &Allocator{
		projector:     projector,
		temperature:   temperature,
		normalization: normalization,
		log:           log.With().Str("service", "allocator").Logger(),
	}
}

// RawTargets computes the unconstrained target weight vector:
//
//	raw[s] = (1 - sentimentWeight) * currentWeight[s] + sentimentWeight * normalizedSignal[s]
//
// A sentimentWeight of zero reproduces the current weights exactly; no
// normalization noise may leak in.
func (a *Allocator) RawTargets(
	current map[string]float64,
	scores map[string]domain.SentimentScore,
	universe []string,
	sentimentWeight float64,
) map[string]float64 {
	raw := make(map[string]float64, len(universe))

	if sentimentWeight == 0 {
		for _, id := range universe {
			raw[id] = current[id]
		}
		return raw
	}

	signal := a.normalizeSignal(scores, universe)

	for _, id := range universe {
		raw[id] = (1-sentimentWeight)*current[id] + sentimentWeight*signal[id]
	}

	return raw
}

// Targets computes the feasible target weight vector for one account
func (a *Allocator) Targets(
	current map[string]float64,
	scores map[string]domain.SentimentScore,
	universe []string,
	sectorOf map[string]string,
	sentimentWeight float64,
	filters domain.Filters,
) (Projection, error) {
	raw := a.RawTargets(current, scores, universe, sentimentWeight)
	return a.projector.Project(raw, sectorOf, filters)
}

// normalizeSignal rescales sentiment scores into a weight-like distribution
// over the universe with the configured rescaling function. Securities
// without a score enter as neutral (0).
func (a *Allocator) normalizeSignal(scores map[string]domain.SentimentScore, universe []string) map[string]float64 {
	// Only securities with an actual score compete for signal mass;
	// handing unscored securities mass would tilt accounts toward
	// securities the judge said nothing about.
	var scored []string
	var values []float64
	for _, id := range universe {
		if score, ok := scores[id]; ok {
			scored = append(scored, id)
			values = append(values, score.Score)
		}
	}

	signal := make(map[string]float64, len(universe))
	if len(scored) == 0 {
		return signal
	}

	var normalized []float64
	switch a.normalization {
	case NormalizationMinMax:
		normalized = formulas.MinMaxNormalize(values)
	default:
		normalized = formulas.Softmax(values, a.temperature)
	}

	for i, id := range scored {
		signal[id] = normalized[i]
	}

	return signal
}
