package extract

import "regexp"

// Relationship edge types emitted by the mention scanner.
const (
	RelCompetitor = "HAS_COMPETITOR"
	RelSupplier   = "HAS_SUPPLIER"
	RelCustomer   = "HAS_CUSTOMER"
	RelPartner    = "HAS_PARTNER"
)

// contextPattern ties a phrasing to a relationship type. The first capture
// group is the text region mined for candidate company names.
type contextPattern struct {
	re      *regexp.Regexp
	relType string
}

var contextPatterns = []contextPattern{
	{regexp.MustCompile(`(?i)compete(?:s)?\s+(?:directly\s+)?with\s+((?:[A-Z][\w&.'-]*[\s,]+){1,12})`), RelCompetitor},
	{regexp.MustCompile(`(?i)(?:our|principal|primary|main)\s+competitors\s+(?:include|are)[\s:]+((?:[A-Z][\w&.'-]*[\s,]+(?:and\s+)?){1,12})`), RelCompetitor},
	{regexp.MustCompile(`(?i)competitors\s+such\s+as\s+((?:[A-Z][\w&.'-]*[\s,]+(?:and\s+)?){1,12})`), RelCompetitor},
	{regexp.MustCompile(`([A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*){0,4})\s+is\s+our\s+sole\s+source`), RelSupplier},
	{regexp.MustCompile(`(?i)depend\s+(?:up)?on\s+((?:[A-Z][\w&.'-]*[\s,]+){1,6})`), RelSupplier},
	{regexp.MustCompile(`(?i)(?:supplied|manufactured|produced)\s+by\s+((?:[A-Z][\w&.'-]*[\s,]+){1,6})`), RelSupplier},
	{regexp.MustCompile(`([A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*){0,4})\s+account(?:s|ed)?\s+for\s+(?:approximately\s+)?\d+(?:\.\d+)?%\s+of\s+(?:our\s+)?(?:net\s+)?revenue`), RelCustomer},
	{regexp.MustCompile(`(?i)partner(?:ship|ed)?\s+with\s+((?:[A-Z][\w&.'-]*[\s,]+){1,6})`), RelPartner},
	{regexp.MustCompile(`(?i)collaborat(?:e|ion|ed)\s+with\s+((?:[A-Z][\w&.'-]*[\s,]+){1,6})`), RelPartner},
}

// Candidate-name cascade, most specific first: a capitalized run ending in a
// corporate suffix, then a multi-word capitalized run, then a single
// capitalized or all-caps token.
var candidateRes = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*){0,5},?\s+(?:Inc|Corp|Corporation|Company|Co|Ltd|LLC|LP|PLC|Group|Holdings)\b\.?`),
	regexp.MustCompile(`[A-Z][\w&.'-]+(?:\s+[A-Z][\w&.'-]+){1,4}`),
	regexp.MustCompile(`\b[A-Z][A-Za-z&.'-]{2,}\b`),
}

// mentionStopWords removes generic capitalized words and filing boilerplate
// that the cascade otherwise promotes to company names.
var mentionStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "we": {}, "our": {}, "us": {},
	"company": {}, "companies": {}, "corporation": {}, "business": {},
	"item": {}, "items": {}, "part": {}, "form": {}, "annual": {}, "report": {},
	"united states": {}, "u.s.": {}, "usa": {}, "america": {}, "american": {},
	"north america": {}, "europe": {}, "asia": {}, "china": {}, "japan": {},
	"canada": {}, "mexico": {}, "india": {}, "germany": {}, "france": {},
	"sec": {}, "securities": {}, "exchange": {}, "commission": {},
	"board": {}, "directors": {}, "management": {}, "committee": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"revenue": {}, "revenues": {}, "income": {}, "sales": {}, "products": {},
	"services": {}, "customers": {}, "suppliers": {}, "competitors": {},
	"employees": {}, "operations": {}, "markets": {}, "market": {},
	"risk": {}, "risks": {}, "factors": {}, "general": {}, "overview": {},
	"common": {}, "stock": {}, "shares": {}, "shareholders": {},
	"stockholders": {}, "fiscal": {}, "year": {}, "quarter": {},
	"act": {}, "section": {}, "state": {}, "states": {}, "federal": {},
	"government": {}, "internet": {}, "website": {}, "certain": {},
	"other": {}, "others": {}, "various": {}, "several": {}, "many": {},
	"new": {}, "york": {}, "california": {}, "texas": {}, "delaware": {},
	"gaap": {}, "fasb": {}, "covid": {}, "covid-19": {},
}
