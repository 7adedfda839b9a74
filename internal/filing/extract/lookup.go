package extract

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/edgar-graph/internal/model"
)

// Lookup resolves raw company mentions to CIKs. Resolution priority is exact
// ticker, then exact name, then normalized name, then normalized prefix with
// a length-ratio confidence floor of 0.8.
type Lookup struct {
	byTicker map[string]string
	byName   map[string]string
	byNorm   map[string]string
	norms    []string
}

// Match is one resolved mention.
type Match struct {
	CIK        string
	Confidence float64
}

const minPrefixConfidence = 0.8

var (
	caseFolder = cases.Fold()

	namePunctRe  = regexp.MustCompile(`[^\w\s&]`)
	nameSuffixRe = regexp.MustCompile(`\b(incorporated|inc|corporation|corp|company|co|limited|ltd|llc|lp|plc|holdings|holding|group|the)\b`)
)

// normalizeName folds case, strips punctuation and corporate suffixes, and
// collapses whitespace so "The Coca-Cola Company" and "Coca Cola Co." meet.
func normalizeName(name string) string {
	s := caseFolder.String(name)
	s = namePunctRe.ReplaceAllString(s, " ")
	s = nameSuffixRe.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

// NewLookup indexes the company universe for mention resolution.
func NewLookup(companies []model.Company) *Lookup {
	l := &Lookup{
		byTicker: make(map[string]string, len(companies)),
		byName:   make(map[string]string, len(companies)),
		byNorm:   make(map[string]string, len(companies)),
	}
	for _, c := range companies {
		cik := model.PadCIK(c.CIK)
		if cik == "" {
			continue
		}
		if c.Ticker != "" {
			l.byTicker[strings.ToUpper(c.Ticker)] = cik
		}
		if c.Name != "" {
			l.byName[caseFolder.String(c.Name)] = cik
			if norm := normalizeName(c.Name); norm != "" {
				if _, dup := l.byNorm[norm]; !dup {
					l.byNorm[norm] = cik
					l.norms = append(l.norms, norm)
				}
			}
		}
	}
	sort.Strings(l.norms)
	return l
}

// Resolve maps one raw mention to a CIK. Returns false when nothing in the
// universe matches with enough confidence.
func (l *Lookup) Resolve(mention string) (Match, bool) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return Match{}, false
	}

	if cik, ok := l.byTicker[strings.ToUpper(mention)]; ok {
		return Match{CIK: cik, Confidence: 1.0}, true
	}
	if cik, ok := l.byName[caseFolder.String(mention)]; ok {
		return Match{CIK: cik, Confidence: 0.95}, true
	}

	norm := normalizeName(mention)
	if norm == "" {
		return Match{}, false
	}
	if cik, ok := l.byNorm[norm]; ok {
		return Match{CIK: cik, Confidence: 0.9}, true
	}

	// Prefix search over the sorted normalized names. Confidence scales with
	// how much of the indexed name the mention covers.
	i := sort.SearchStrings(l.norms, norm)
	if i < len(l.norms) && strings.HasPrefix(l.norms[i], norm) {
		full := l.norms[i]
		conf := float64(len(norm)) / float64(len(full))
		if conf >= minPrefixConfidence {
			return Match{CIK: l.byNorm[full], Confidence: conf}, true
		}
	}
	return Match{}, false
}
