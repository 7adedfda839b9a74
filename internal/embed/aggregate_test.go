package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	assert.Nil(t, Aggregate(nil, AggExpDecay))
}

func TestAggregate_SingleChunkPassthrough(t *testing.T) {
	vec := []float32{0.1, 0.2, 0.3}
	out := Aggregate([][]float32{vec}, AggExpDecay)
	assert.Equal(t, vec, out)
}

func TestAggregate_ExpDecayFavorsEarlierChunks(t *testing.T) {
	vectors := [][]float32{
		{1, 0},
		{0, 1},
	}
	out := Aggregate(vectors, AggExpDecay)
	require.Len(t, out, 2)
	// Weight of chunk 0 is e^0, chunk 1 is e^-0.2; after normalization the
	// first component must dominate.
	assert.Greater(t, out[0], out[1])
	assert.InDelta(t, 1.0, float64(out[0]+out[1]), 1e-6)
}

func TestAggregate_ExpDecayWeightsNormalized(t *testing.T) {
	weights := expDecayWeights(5)
	var sum float64
	for i, w := range weights {
		sum += w
		if i > 0 {
			assert.Less(t, w, weights[i-1])
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	ratio := weights[0] / weights[1]
	assert.InDelta(t, math.Exp(decayRate), ratio, 1e-9)
}

func TestAggregate_Uniform(t *testing.T) {
	vectors := [][]float32{
		{2, 0},
		{0, 2},
	}
	out := Aggregate(vectors, AggUniform)
	assert.InDelta(t, 1.0, float64(out[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(out[1]), 1e-6)
}

func TestAggregate_Max(t *testing.T) {
	vectors := [][]float32{
		{0.5, -1, 3},
		{1, -2, 2},
	}
	out := Aggregate(vectors, AggMax)
	assert.Equal(t, []float32{1, -1, 3}, out)
}
