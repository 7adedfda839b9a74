package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Item heading patterns. Filings are wildly inconsistent here, so matching
// is over collapsed whitespace and case-insensitive.
var (
	item1Re  = regexp.MustCompile(`(?i)item\s+1\s*[.:—-]?\s*business`)
	item1ARe = regexp.MustCompile(`(?i)item\s+1a\s*[.:—-]?\s*risk\s+factors`)
	item2Re  = regexp.MustCompile(`(?i)item\s+2\s*[.:—-]?\s*propert`)

	item1AnchorRe = regexp.MustCompile(`(?i)item[-_]?1[-_]?business`)
	item1AAnchRe  = regexp.MustCompile(`(?i)item[-_]?1a[-_]?risk`)
)

const minSectionLen = 500

// BusinessExtractor returns the Item 1 business description.
type BusinessExtractor struct{}

func (BusinessExtractor) FieldName() string { return "business_description" }

func (BusinessExtractor) Validate(value any) bool {
	s, ok := value.(string)
	return ok && len(s) >= minSectionLen
}

func (BusinessExtractor) Extract(doc *Document) (any, error) {
	return sectionBetween(doc, item1Re, item1AnchorRe, item1ARe)
}

// RiskFactorsExtractor returns the Item 1A risk factors.
type RiskFactorsExtractor struct{}

func (RiskFactorsExtractor) FieldName() string { return "risk_factors" }

func (RiskFactorsExtractor) Validate(value any) bool {
	s, ok := value.(string)
	return ok && len(s) >= minSectionLen
}

func (RiskFactorsExtractor) Extract(doc *Document) (any, error) {
	return sectionBetween(doc, item1ARe, item1AAnchRe, item2Re)
}

// sectionBetween slices the document's visible text from the section heading
// to the next section heading. The TOC anchor, when present, pins the real
// heading; otherwise the last heading-pattern match wins since the first is
// usually the TOC row itself.
func sectionBetween(doc *Document, heading, anchor, next *regexp.Regexp) (any, error) {
	tree, err := doc.Tree()
	if err != nil {
		return nil, err
	}

	text := collapseSpace(visibleText(doc))
	start := -1

	// Prefer an id that matches the TOC anchor convention.
	var anchorText string
	tree.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		if anchor.MatchString(id) {
			anchorText = collapseSpace(s.Text())
			return false
		}
		return true
	})
	if anchorText != "" && len(anchorText) > 10 {
		start = strings.Index(text, anchorText)
	}

	if start < 0 {
		matches := heading.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			return nil, eris.New("extract: section heading not found")
		}
		start = matches[len(matches)-1][0]
	}

	rest := text[start:]
	end := len(rest)
	if m := next.FindAllStringIndex(rest, -1); m != nil {
		// Skip matches inside the first few hundred chars (heading overlap).
		for _, idx := range m {
			if idx[0] > minSectionLen {
				end = idx[0]
				break
			}
		}
	}
	return strings.TrimSpace(rest[:end]), nil
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
