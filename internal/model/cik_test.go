package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadCIK(t *testing.T) {
	assert.Equal(t, "0000320193", PadCIK("320193"))
	assert.Equal(t, "0000320193", PadCIK("0000320193"))
	assert.Equal(t, "0000320193", PadCIK(" 320193 "))
	assert.Equal(t, "0000000001", PadCIK("1"))
	assert.Equal(t, "", PadCIK(""))
	assert.Equal(t, "", PadCIK("0"))
	assert.Equal(t, "", PadCIK("not-a-cik"))
	assert.Equal(t, "", PadCIK("320193A"))
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "0000320193_business_description_2024", DocID("0000320193", "business_description", 2024))
}

func TestChunkID(t *testing.T) {
	docID := DocID("0000320193", "risk_factors", 2024)
	assert.Equal(t, "0000320193_risk_factors_2024_chunk_0", ChunkID(docID, 0))
	assert.Equal(t, "0000320193_risk_factors_2024_chunk_12", ChunkID(docID, 12))
}
