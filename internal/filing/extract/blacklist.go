package extract

import (
	"strings"

	"github.com/sells-group/edgar-graph/internal/model"
)

// falsePositiveRule deletes relationships whose raw mention collides with a
// common English word or an ambiguous ticker. Rules with context phrases
// fire only when the surrounding text confirms the collision.
type falsePositiveRule struct {
	ticker     string
	mentions   []string
	contextAny []string
}

var falsePositiveRules = []falsePositiveRule{
	{ticker: "JYNT", mentions: []string{"joint"}},
	{ticker: "COST", mentions: []string{"cost", "costs"}},
	{ticker: "CRM", mentions: []string{"crm"}, contextAny: []string{
		"crm software", "crm system", "customer relationship management",
	}},
	{ticker: "RGS", mentions: []string{"regis"}},
	{ticker: "TGT", mentions: []string{"target"}, contextAny: []string{
		"target business", "target company", "target market", "price target",
	}},
	{ticker: "NDAQ", mentions: []string{"nasdaq"}, contextAny: []string{
		"listed on nasdaq", "nasdaq stock", "nasdaq global", "nasdaq listing",
		"nasdaq capital market",
	}},
}

// FilterFalsePositives drops relationships matching the collision rules.
// tickerOf maps a CIK back to its ticker; unknown CIKs pass through.
func FilterFalsePositives(rels []model.Relationship, tickerOf func(cik string) string) []model.Relationship {
	out := rels[:0]
	for _, r := range rels {
		if !isFalsePositive(r, tickerOf(r.ToCIK)) {
			out = append(out, r)
		}
	}
	return out
}

func isFalsePositive(r model.Relationship, ticker string) bool {
	mention := strings.ToLower(strings.TrimSpace(r.RawMention))
	context := strings.ToLower(r.Context)
	for _, rule := range falsePositiveRules {
		if rule.ticker != ticker {
			continue
		}
		matched := false
		for _, m := range rule.mentions {
			if mention == m {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if len(rule.contextAny) == 0 {
			return true
		}
		for _, phrase := range rule.contextAny {
			if strings.Contains(context, phrase) {
				return true
			}
		}
	}
	return false
}
