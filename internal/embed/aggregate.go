package embed

import "math"

// Aggregation mode for combining chunk vectors into one text vector.
const (
	AggExpDecay = "exp_decay"
	AggUniform  = "uniform"
	AggMax      = "max"
)

const decayRate = 0.2

// Aggregate combines chunk vectors into a single vector. Earlier chunks
// dominate under exp_decay since the opening of a section carries most of
// the signal. A single chunk passes through untouched.
func Aggregate(vectors [][]float32, mode string) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}
	switch mode {
	case AggMax:
		return aggregateMax(vectors)
	case AggUniform:
		return aggregateWeighted(vectors, uniformWeights(len(vectors)))
	default:
		return aggregateWeighted(vectors, expDecayWeights(len(vectors)))
	}
}

func expDecayWeights(n int) []float64 {
	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		weights[i] = math.Exp(-decayRate * float64(i))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

func uniformWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}

func aggregateWeighted(vectors [][]float32, weights []float64) []float32 {
	dim := len(vectors[0])
	out := make([]float32, dim)
	for i, vec := range vectors {
		for j := 0; j < dim && j < len(vec); j++ {
			out[j] += float32(weights[i] * float64(vec[j]))
		}
	}
	return out
}

func aggregateMax(vectors [][]float32) []float32 {
	dim := len(vectors[0])
	out := make([]float32, dim)
	copy(out, vectors[0])
	for _, vec := range vectors[1:] {
		for j := 0; j < dim && j < len(vec); j++ {
			if vec[j] > out[j] {
				out[j] = vec[j]
			}
		}
	}
	return out
}
