package retrieve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeChunks_DedupesKeepingBestScore(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: "a", Score: 0.6, Source: "vector"},
		{ChunkID: "a", Score: 0.8, Source: "graph"},
		{ChunkID: "b", Score: 0.7},
	}
	out := mergeChunks(chunks, 10)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ChunkID)
	assert.Equal(t, 0.8, out[0].Score)
	assert.Equal(t, "graph", out[0].Source)
	assert.Equal(t, "b", out[1].ChunkID)
}

func TestMergeChunks_CutsToLimit(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.8},
		{ChunkID: "c", Score: 0.7},
	}
	out := mergeChunks(chunks, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ChunkID)
	assert.Equal(t, "b", out[1].ChunkID)
}

func TestComposeContext_Headers(t *testing.T) {
	ctx := composeContext([]Chunk{
		{CompanyName: "Apple Inc.", SectionType: "risk_factors", Index: 2, Source: "vector", Text: "Competition is intense."},
		{CompanyName: "Microsoft Corporation", SectionType: "business_description", Index: 0, Source: "graph",
			Related: "competitor", Text: "Develops software."},
	})

	assert.Contains(t, ctx, "[Apple Inc. – risk_factors – Chunk 2 – Source: vector]")
	assert.Contains(t, ctx, "[Microsoft Corporation – business_description – Chunk 0 – Source: graph; Related: competitor]")
	assert.Contains(t, ctx, "Competition is intense.")
}

func TestRelationDescription(t *testing.T) {
	assert.Equal(t, "competitor", relationDescription(RelatedCompany{EdgeType: "HAS_COMPETITOR"}))
	assert.Equal(t, "similar risk", relationDescription(RelatedCompany{EdgeType: "SIMILAR_RISK"}))
	assert.Equal(t, "supplier via Apple Inc.", relationDescription(RelatedCompany{EdgeType: "HAS_SUPPLIER", Via: "Apple Inc."}))
}

func TestSortRelated_HopsThenEdgePriority(t *testing.T) {
	rcs := []RelatedCompany{
		{CIK: "3", Hops: 2, EdgeType: "HAS_SUPPLIER"},
		{CIK: "2", Hops: 1, EdgeType: "SIMILAR_RISK"},
		{CIK: "1", Hops: 1, EdgeType: "HAS_SUPPLIER"},
	}
	sortRelated(rcs)

	assert.Equal(t, "1", rcs[0].CIK)
	assert.Equal(t, "2", rcs[1].CIK)
	assert.Equal(t, "3", rcs[2].CIK)
}

func TestCosine(t *testing.T) {
	q := []float64{1, 0}
	assert.InDelta(t, 1.0, cosine(q, []any{1.0, 0.0}), 1e-9)
	assert.InDelta(t, 0.0, cosine(q, []any{0.0, 1.0}), 1e-9)
	assert.Zero(t, cosine(q, []any{1.0}))
	assert.Zero(t, cosine(q, []any{"bad", 0.0}))
	assert.Zero(t, cosine(q, []any{0.0, 0.0}))
}
