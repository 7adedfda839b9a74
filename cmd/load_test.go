package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-graph/internal/embed"
	"github.com/sells-group/edgar-graph/internal/filing/extract"
	"github.com/sells-group/edgar-graph/internal/graph"
)

func TestAddSection_DocumentChunksAndEdges(t *testing.T) {
	p := &graphPayload{companyRels: map[string][]graph.Edge{}}
	chunker := embed.NewChunker("text-embedding-3-small", 50, 10)
	text := strings.Repeat("Competition in our markets is intense and evolving. ", 40)

	addSection(p, chunker, "0000320193", "risk_factors", 2024, "0000320193-24-000081", text)

	require.Len(t, p.documents, 1)
	doc := p.documents[0]
	assert.Equal(t, "0000320193_risk_factors_2024", doc["doc_id"])
	assert.Equal(t, "0000320193-24-000081", doc["source"])
	assert.Equal(t, len(p.chunks), doc["chunk_count"])
	require.Greater(t, len(p.chunks), 1)

	require.Len(t, p.hasDoc, 1)
	assert.Equal(t, "0000320193", p.hasDoc[0].FromKey)
	assert.Equal(t, "0000320193_risk_factors_2024", p.hasDoc[0].ToKey)

	// Chunk points at its document, not the other way around.
	require.Len(t, p.partOfDoc, len(p.chunks))
	for i, e := range p.partOfDoc {
		assert.Equal(t, p.chunks[i]["chunk_id"], e.FromKey)
		assert.Equal(t, "0000320193_risk_factors_2024", e.ToKey)
	}
	assert.Len(t, p.nextChunk, len(p.chunks)-1)

	for _, row := range p.chunks {
		blob, ok := row["metadata"].(string)
		require.True(t, ok)
		var meta map[string]any
		require.NoError(t, json.Unmarshal([]byte(blob), &meta))
		assert.Equal(t, "0000320193", meta["cik"])
		assert.Equal(t, "risk_factors", meta["section_type"])
		assert.Equal(t, float64(2024), meta["year"])
	}
}

func TestAddSection_EmptyTextIsSkipped(t *testing.T) {
	p := &graphPayload{companyRels: map[string][]graph.Edge{}}
	chunker := embed.NewChunker("text-embedding-3-small", 50, 10)

	addSection(p, chunker, "0000320193", "business_description", 2024, "10-K", "")

	assert.Empty(t, p.documents)
	assert.Empty(t, p.chunks)
	assert.Empty(t, p.hasDoc)
	assert.Empty(t, p.partOfDoc)
}

func TestFilingSource(t *testing.T) {
	withAcc := &extract.FilingExtraction{Metadata: &extract.Metadata{AccessionNumber: "0000320193-24-000081"}}
	assert.Equal(t, "0000320193-24-000081", filingSource(withAcc))

	assert.Equal(t, "10-K", filingSource(&extract.FilingExtraction{}))
	assert.Equal(t, "10-K", filingSource(&extract.FilingExtraction{Metadata: &extract.Metadata{}}))
}
