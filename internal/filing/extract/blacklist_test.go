package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/edgar-graph/internal/model"
)

func tickerMap(m map[string]string) func(string) string {
	return func(cik string) string { return m[cik] }
}

func TestFilterFalsePositives_UnconditionalRule(t *testing.T) {
	rels := []model.Relationship{
		{ToCIK: "1", Type: RelCompetitor, RawMention: "Joint"},
		{ToCIK: "2", Type: RelCompetitor, RawMention: "Apple Inc."},
	}
	out := FilterFalsePositives(rels, tickerMap(map[string]string{"1": "JYNT", "2": "AAPL"}))

	assert.Len(t, out, 1)
	assert.Equal(t, "2", out[0].ToCIK)
}

func TestFilterFalsePositives_CostPlural(t *testing.T) {
	rels := []model.Relationship{
		{ToCIK: "1", RawMention: "Costs"},
		{ToCIK: "1", RawMention: "Costco"},
	}
	out := FilterFalsePositives(rels, tickerMap(map[string]string{"1": "COST"}))

	// "costco" is not in the rule's mention list, so it survives.
	assert.Len(t, out, 1)
	assert.Equal(t, "Costco", out[0].RawMention)
}

func TestFilterFalsePositives_ContextGatedRule(t *testing.T) {
	withContext := model.Relationship{
		ToCIK: "1", RawMention: "Target",
		Context: "we may acquire a target business in an adjacent market",
	}
	withoutContext := model.Relationship{
		ToCIK: "1", RawMention: "Target",
		Context: "we compete with Target in general merchandise retail",
	}
	out := FilterFalsePositives(
		[]model.Relationship{withContext, withoutContext},
		tickerMap(map[string]string{"1": "TGT"}),
	)

	// Only the mention confirmed by context phrasing is dropped.
	assert.Len(t, out, 1)
	assert.Contains(t, out[0].Context, "general merchandise")
}

func TestFilterFalsePositives_NasdaqListing(t *testing.T) {
	rels := []model.Relationship{
		{ToCIK: "1", RawMention: "Nasdaq", Context: "our common stock is listed on nasdaq under the symbol"},
	}
	out := FilterFalsePositives(rels, tickerMap(map[string]string{"1": "NDAQ"}))
	assert.Empty(t, out)
}

func TestFilterFalsePositives_UnknownTickerPassesThrough(t *testing.T) {
	rels := []model.Relationship{
		{ToCIK: "9", RawMention: "Joint"},
	}
	out := FilterFalsePositives(rels, tickerMap(nil))
	assert.Len(t, out, 1)
}
