package extract

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/domains"
)

// WebsiteExtractor resolves the filer's official website. Strategies run in
// priority order and stop at the first value that survives domain validation:
// the dei:EntityWebSite iXBRL fact, a companyWebsite XML element, then
// hostname heuristics over namespace declarations and visible text.
type WebsiteExtractor struct{}

func (WebsiteExtractor) FieldName() string { return "website" }

func (WebsiteExtractor) Validate(value any) bool {
	s, ok := value.(string)
	return ok && domains.IsValid(s)
}

func (e WebsiteExtractor) Extract(doc *Document) (any, error) {
	if v := e.fromIXBRL(doc); v != "" {
		return v, nil
	}
	if v := e.fromXML(doc); v != "" {
		return v, nil
	}
	if v := e.fromHeuristics(doc); v != "" {
		return v, nil
	}
	return nil, eris.New("extract: no website found")
}

// fromIXBRL looks for spans tagged with the EntityWebSite concept in any of
// the attributes filers actually use for it.
func (WebsiteExtractor) fromIXBRL(doc *Document) string {
	tree, err := doc.Tree()
	if err != nil {
		return ""
	}
	var found string
	tree.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"name", "id", "data-ixbrl", "class"} {
			v, ok := s.Attr(attr)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(v), "entitywebsite") {
				if d := domains.Normalize(strings.TrimSpace(s.Text())); d != "" {
					found = d
					return false
				}
			}
		}
		return true
	})
	return found
}

// fromXML handles pure-XML filings carrying a companyWebsite element. The
// stdlib decoder does not resolve external entities, so hostile DTDs are
// inert here.
func (WebsiteExtractor) fromXML(doc *Document) string {
	if !bytes.Contains(doc.Content, []byte("companyWebsite")) {
		return ""
	}
	dec := xml.NewDecoder(bytes.NewReader(doc.Content))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "companyWebsite") {
			continue
		}
		var value string
		if err := dec.DecodeElement(&value, &start); err != nil {
			return ""
		}
		return domains.Normalize(strings.TrimSpace(value))
	}
}

var (
	xmlnsHostRe   = regexp.MustCompile(`xmlns:[a-zA-Z0-9]+="https?://([^/"]+)`)
	visibleHostRe = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?([a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)+)\b`)
)

var websiteKeywords = []string{"website", "web site", "internet address", "internet site"}

// fromHeuristics mines candidate hostnames from xmlns declarations and from
// visible text, scoring each by keyword proximity and a .com bonus.
func (e WebsiteExtractor) fromHeuristics(doc *Document) string {
	scores := map[string]float64{}

	for _, m := range xmlnsHostRe.FindAllSubmatch(doc.Content, -1) {
		if d := domains.Normalize(string(m[1])); d != "" {
			scores[d] += 1.0
		}
	}

	text := visibleText(doc)
	lower := strings.ToLower(text)
	for _, m := range visibleHostRe.FindAllStringSubmatchIndex(text, -1) {
		host := text[m[2]:m[3]]
		d := domains.Normalize(host)
		if d == "" {
			continue
		}
		score := 1.0
		if strings.HasSuffix(d, ".com") {
			score += 0.5
		}
		for _, kw := range websiteKeywords {
			if proximatePhrase(lower, kw, m[0], 120) {
				score += 2.0
				break
			}
		}
		scores[d] += score
	}

	if len(scores) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(scores))
	for d := range scores {
		candidates = append(candidates, d)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if scores[candidates[i]] != scores[candidates[j]] {
			return scores[candidates[i]] > scores[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// visibleText returns the document text with script and style subtrees
// removed. Falls back to the raw bytes when the tree failed to parse.
func visibleText(doc *Document) string {
	tree, err := doc.Tree()
	if err != nil {
		return string(doc.Content)
	}
	clone := tree.Clone()
	clone.Find("script,style").Remove()
	return clone.Text()
}

// proximatePhrase reports whether phrase occurs within window bytes before
// position pos.
func proximatePhrase(lower, phrase string, pos, window int) bool {
	start := pos - window
	if start < 0 {
		start = 0
	}
	end := pos + window
	if end > len(lower) {
		end = len(lower)
	}
	return strings.Contains(lower[start:end], phrase)
}
