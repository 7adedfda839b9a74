package extract

import (
	"strings"

	"github.com/sells-group/edgar-graph/internal/model"
)

const contextWindow = 200

// RelationshipExtractor scans the business and risk sections for phrasings
// that name other companies, resolves the mentions against the company
// universe, and emits typed edges.
type RelationshipExtractor struct {
	Lookup  *Lookup
	SelfCIK string
}

func (RelationshipExtractor) FieldName() string { return "relationships" }

func (RelationshipExtractor) Validate(value any) bool {
	rels, ok := value.([]model.Relationship)
	return ok && len(rels) > 0
}

func (e RelationshipExtractor) Extract(doc *Document) (any, error) {
	text := e.sectionText(doc)
	if text == "" {
		return nil, nil
	}

	seen := map[string]struct{}{}
	var rels []model.Relationship
	for _, pat := range contextPatterns {
		for _, m := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			region := text[m[2]:m[3]]
			ctx := contextAround(text, m[0], m[1])
			for _, mention := range candidateMentions(region) {
				match, ok := e.Lookup.Resolve(mention)
				if !ok || match.CIK == e.SelfCIK {
					continue
				}
				key := pat.relType + ":" + match.CIK
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				rels = append(rels, model.Relationship{
					FromCIK:    e.SelfCIK,
					ToCIK:      match.CIK,
					Type:       pat.relType,
					Confidence: match.Confidence,
					RawMention: mention,
					Context:    ctx,
				})
			}
		}
	}
	return rels, nil
}

// sectionText prefers the business and risk sections; when neither heading
// is locatable the whole visible text is scanned.
func (RelationshipExtractor) sectionText(doc *Document) string {
	var parts []string
	if v, err := sectionBetween(doc, item1Re, item1AnchorRe, item1ARe); err == nil {
		parts = append(parts, v.(string))
	}
	if v, err := sectionBetween(doc, item1ARe, item1AAnchRe, item2Re); err == nil {
		parts = append(parts, v.(string))
	}
	if len(parts) == 0 {
		return collapseSpace(visibleText(doc))
	}
	return strings.Join(parts, " ")
}

// candidateMentions runs the capitalization cascade over a matched region
// and filters stop words. The cascade stops at the first tier that yields
// anything so a full legal name is not also emitted as its fragments.
func candidateMentions(region string) []string {
	for _, re := range candidateRes {
		var out []string
		for _, raw := range re.FindAllString(region, -1) {
			mention := strings.Trim(raw, " ,.")
			if mention == "" {
				continue
			}
			if _, stop := mentionStopWords[strings.ToLower(mention)]; stop {
				continue
			}
			out = append(out, mention)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func contextAround(text string, start, end int) string {
	half := (contextWindow - (end - start)) / 2
	if half < 0 {
		half = 0
	}
	lo := start - half
	if lo < 0 {
		lo = 0
	}
	hi := end + half
	if hi > len(text) {
		hi = len(text)
	}
	ctx := text[lo:hi]
	if len(ctx) > contextWindow {
		ctx = ctx[:contextWindow]
	}
	return ctx
}
