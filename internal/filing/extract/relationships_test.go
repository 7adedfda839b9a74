package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-graph/internal/model"
)

func relFiling(body string) *Document {
	business := strings.Repeat("We design and sell products in many categories worldwide. ", 10) + body
	risk := strings.Repeat("Adverse events could harm our results of operations. ", 12)
	return docFromString(filingHTML(business, risk))
}

func extractRels(t *testing.T, doc *Document, self string) []model.Relationship {
	t.Helper()
	ex := RelationshipExtractor{Lookup: NewLookup(testUniverse()), SelfCIK: self}
	value, err := ex.Extract(doc)
	require.NoError(t, err)
	if value == nil {
		return nil
	}
	return value.([]model.Relationship)
}

func relOfType(rels []model.Relationship, relType string) []model.Relationship {
	var out []model.Relationship
	for _, r := range rels {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

func TestRelationships_CompetitorPattern(t *testing.T) {
	doc := relFiling("Our principal competitors include Apple Inc. and Microsoft Corporation. ")
	rels := extractRels(t, doc, "0000021344")

	competitors := relOfType(rels, RelCompetitor)
	require.Len(t, competitors, 2)
	ciks := []string{competitors[0].ToCIK, competitors[1].ToCIK}
	assert.Contains(t, ciks, "0000320193")
	assert.Contains(t, ciks, "0000789019")
	for _, r := range competitors {
		assert.Equal(t, "0000021344", r.FromCIK)
		assert.NotEmpty(t, r.Context)
		assert.Greater(t, r.Confidence, 0.0)
	}
}

func TestRelationships_SelfMentionExcluded(t *testing.T) {
	doc := relFiling("We compete with Apple Inc. in several markets. ")
	rels := extractRels(t, doc, "0000320193")
	assert.Empty(t, relOfType(rels, RelCompetitor))
}

func TestRelationships_DedupedPerTypeAndCIK(t *testing.T) {
	doc := relFiling("We compete with Apple Inc. in phones. We also compete with Apple Inc. in tablets. ")
	rels := extractRels(t, doc, "0000021344")
	assert.Len(t, relOfType(rels, RelCompetitor), 1)
}

func TestRelationships_CustomerRevenuePattern(t *testing.T) {
	doc := relFiling("Amazon.com accounted for approximately 12% of our net revenue in fiscal 2024. ")
	rels := extractRels(t, doc, "0000021344")

	customers := relOfType(rels, RelCustomer)
	require.Len(t, customers, 1)
	assert.Equal(t, "0001018724", customers[0].ToCIK)
}

func TestRelationships_UnresolvableMentionDropped(t *testing.T) {
	doc := relFiling("We compete with Globex Corporation in widgets. ")
	rels := extractRels(t, doc, "0000021344")
	assert.Empty(t, relOfType(rels, RelCompetitor))
}

func TestCandidateMentions_SuffixTierWins(t *testing.T) {
	mentions := candidateMentions("Apple Inc. and certain others")
	require.NotEmpty(t, mentions)
	assert.Equal(t, "Apple Inc", mentions[0])
}

func TestCandidateMentions_StopWordsFiltered(t *testing.T) {
	assert.Empty(t, candidateMentions("Revenue"))
	assert.Empty(t, candidateMentions("December"))
}

func TestContextAround_Window(t *testing.T) {
	text := strings.Repeat("a", 1000)
	ctx := contextAround(text, 500, 520)
	assert.LessOrEqual(t, len(ctx), contextWindow)
}
