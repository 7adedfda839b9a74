package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_IdenticalVectors(t *testing.T) {
	pairs, err := Compute([]Input{
		{Key: "a", Vector: []float32{1, 2, 3}},
		{Key: "b", Vector: []float32{2, 4, 6}},
	}, 10, 0.7)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].Left)
	assert.Equal(t, "b", pairs[0].Right)
	assert.InDelta(t, 1.0, pairs[0].Score, 1e-9)
}

func TestCompute_BelowThresholdDropped(t *testing.T) {
	pairs, err := Compute([]Input{
		{Key: "a", Vector: []float32{1, 0}},
		{Key: "b", Vector: []float32{0, 1}},
	}, 10, 0.7)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestCompute_PairDedupedAcrossRows(t *testing.T) {
	// Three near-identical vectors: each unordered pair must appear once even
	// though both rows propose it.
	pairs, err := Compute([]Input{
		{Key: "a", Vector: []float32{1, 0.01}},
		{Key: "b", Vector: []float32{1, 0.02}},
		{Key: "c", Vector: []float32{1, 0.03}},
	}, 10, 0.7)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	seen := map[[2]string]bool{}
	for _, p := range pairs {
		assert.Less(t, p.Left, p.Right)
		key := [2]string{p.Left, p.Right}
		assert.False(t, seen[key])
		seen[key] = true
	}
}

func TestCompute_TopKLimitsPerRow(t *testing.T) {
	inputs := []Input{
		{Key: "q", Vector: []float32{1, 0}},
		{Key: "a", Vector: []float32{1, 0.01}},
		{Key: "b", Vector: []float32{1, 0.02}},
		{Key: "c", Vector: []float32{1, 0.5}},
	}
	pairs, err := Compute(inputs, 1, 0.7)
	require.NoError(t, err)

	// Row q may only propose its single best match.
	var qEdges int
	for _, p := range pairs {
		if p.Left == "q" || p.Right == "q" {
			qEdges++
		}
	}
	assert.LessOrEqual(t, qEdges, 1)
}

func TestCompute_ScoreClampedToOne(t *testing.T) {
	pairs, err := Compute([]Input{
		{Key: "a", Vector: []float32{0.0001, 0.0001}},
		{Key: "b", Vector: []float32{0.0001, 0.0001}},
	}, 10, 0.7)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.LessOrEqual(t, pairs[0].Score, 1.0)
}

func TestCompute_ZeroVectorScoresZero(t *testing.T) {
	pairs, err := Compute([]Input{
		{Key: "a", Vector: []float32{0, 0}},
		{Key: "b", Vector: []float32{1, 0}},
	}, 10, 0.7)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestCompute_RejectsNonFinite(t *testing.T) {
	_, err := Compute([]Input{
		{Key: "a", Vector: []float32{1, float32(math.NaN())}},
		{Key: "b", Vector: []float32{1, 0}},
	}, 10, 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
}

func TestCompute_RejectsMixedDimensions(t *testing.T) {
	_, err := Compute([]Input{
		{Key: "a", Vector: []float32{1, 0}},
		{Key: "b", Vector: []float32{1, 0, 0}},
	}, 10, 0.7)
	require.Error(t, err)
}

func TestCompute_FewerThanTwoInputs(t *testing.T) {
	pairs, err := Compute([]Input{{Key: "a", Vector: []float32{1}}}, 10, 0.7)
	require.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestCompute_DeterministicOrdering(t *testing.T) {
	inputs := []Input{
		{Key: "c", Vector: []float32{1, 0.03}},
		{Key: "a", Vector: []float32{1, 0.01}},
		{Key: "b", Vector: []float32{1, 0.02}},
	}
	first, err := Compute(inputs, 10, 0.7)
	require.NoError(t, err)
	second, err := Compute(inputs, 10, 0.7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
