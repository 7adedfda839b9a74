package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreOf(pairs []Pair, left, right string) (float64, bool) {
	for _, p := range pairs {
		if p.Left == left && p.Right == right {
			return p.Score, true
		}
	}
	return 0, false
}

func TestComputeIndustry_Tiers(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", SICCode: "7372", Industry: "Prepackaged Software"},
		{Key: "b", SICCode: "7372", Industry: "Prepackaged Software"},
		{Key: "c", SICCode: "7379", Industry: "Computer Services"},
		{Key: "d", Industry: "computer services"},
		{Key: "e", SICCode: "2834"},
	}
	pairs := ComputeIndustry(profiles, 10, 0.7)

	s, ok := scoreOf(pairs, "a", "b")
	require.True(t, ok)
	assert.Equal(t, 1.0, s)

	s, ok = scoreOf(pairs, "c", "d")
	require.True(t, ok)
	assert.Equal(t, 0.9, s)

	// Same 2-digit SIC major group.
	s, ok = scoreOf(pairs, "a", "c")
	require.True(t, ok)
	assert.Equal(t, 0.75, s)

	_, ok = scoreOf(pairs, "a", "e")
	assert.False(t, ok)
}

func TestComputeTechnology_JaccardCaseInsensitive(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", Technologies: []string{"Shopify", "Stripe"}},
		{Key: "b", Technologies: []string{"shopify", "stripe"}},
		{Key: "c", Technologies: []string{"Stripe", "AWS", "React"}},
		{Key: "d"},
	}
	pairs := ComputeTechnology(profiles, 10, 0.7)

	s, ok := scoreOf(pairs, "a", "b")
	require.True(t, ok)
	assert.Equal(t, 1.0, s)

	// One shared of four total stays under the threshold.
	_, ok = scoreOf(pairs, "a", "c")
	assert.False(t, ok)
	// No technologies means no edge at all.
	for _, p := range pairs {
		assert.NotEqual(t, "d", p.Left)
		assert.NotEqual(t, "d", p.Right)
	}
}

func TestComputeKeyword_SplitsCommaLists(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", Keywords: []string{"cloud, analytics"}},
		{Key: "b", Keywords: []string{"Cloud", "Analytics"}},
		{Key: "c", Keywords: []string{"retail"}},
	}
	pairs := ComputeKeyword(profiles, 10, 0.7)

	s, ok := scoreOf(pairs, "a", "b")
	require.True(t, ok)
	assert.Equal(t, 1.0, s)
	_, ok = scoreOf(pairs, "a", "c")
	assert.False(t, ok)
}

func TestComputeSize_LogScaleProximity(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", MarketCap: 1e9, Revenue: 5e8},
		{Key: "b", MarketCap: 1e9, Revenue: 5e8},
		{Key: "c", MarketCap: 1e10},
		{Key: "d"},
	}
	pairs := ComputeSize(profiles, 10, 0.7)

	s, ok := scoreOf(pairs, "a", "b")
	require.True(t, ok)
	assert.Equal(t, 1.0, s)

	// One order of magnitude apart on the only shared measure: 1 - 1/3.
	_, ok = scoreOf(pairs, "a", "c")
	assert.False(t, ok)
	// No size figures means no edge.
	for _, p := range pairs {
		assert.NotEqual(t, "d", p.Left)
		assert.NotEqual(t, "d", p.Right)
	}
}

func TestComputeSize_CloseSizesScoreHigh(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", MarketCap: 1e9},
		{Key: "b", MarketCap: 2e9},
	}
	pairs := ComputeSize(profiles, 10, 0.7)
	s, ok := scoreOf(pairs, "a", "b")
	require.True(t, ok)
	assert.InDelta(t, 0.8997, s, 0.001)
}

func TestPairwise_TopKAndOrdering(t *testing.T) {
	profiles := []CompanyProfile{
		{Key: "a", SICCode: "7372"},
		{Key: "b", SICCode: "7372"},
		{Key: "c", SICCode: "7372"},
	}
	pairs := ComputeIndustry(profiles, 1, 0.7)

	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.Less(t, p.Left, p.Right)
		assert.Equal(t, 1.0, p.Score)
	}
}

func TestPairwise_FewerThanTwoProfiles(t *testing.T) {
	assert.Nil(t, ComputeIndustry(nil, 10, 0.7))
	assert.Nil(t, ComputeIndustry([]CompanyProfile{{Key: "a", SICCode: "7372"}}, 10, 0.7))
}
