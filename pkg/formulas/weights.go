// Package formulas provides the numeric helpers shared by the allocation
// pipeline.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sum returns the sum of a slice of float64 values
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Sum(data)
}

// Softmax rescales scores into a non-negative distribution summing to 1.
// Temperature controls how sharply high scores dominate: lower values
// concentrate mass on the best-scored entries.
func Softmax(scores []float64, temperature float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	if temperature <= 0 {
		temperature = 1.0
	}

	// Subtract the max before exponentiating for numeric stability
	max := floats.Max(scores)

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp((s - max) / temperature)
	}

	total := floats.Sum(out)
	floats.Scale(1/total, out)

	return out
}

// MinMaxNormalize rescales scores into [0, 1] and then normalizes them to
// sum to 1. When all scores are equal the mass is spread uniformly.
func MinMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	min := floats.Min(scores)
	max := floats.Max(scores)

	out := make([]float64, len(scores))
	if max == min {
		uniform := 1.0 / float64(len(scores))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}

	total := floats.Sum(out)
	if total == 0 {
		uniform := 1.0 / float64(len(scores))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	floats.Scale(1/total, out)
	return out
}
