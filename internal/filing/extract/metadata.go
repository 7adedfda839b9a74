package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Metadata is the filing header data recoverable from the document head.
type Metadata struct {
	AccessionNumber string `json:"accession_number,omitempty"`
	FilingDate      string `json:"filing_date,omitempty"`
	FiscalYearEnd   string `json:"fiscal_year_end,omitempty"`
}

const headScanBytes = 20 * 1024

var (
	accessionRe = regexp.MustCompile(`\b(\d{10}-\d{2}-\d{6})\b`)

	// Dates labeled as filed / filing date / date of report, in either ISO
	// or US order.
	labeledISORe = regexp.MustCompile(`(?i)(?:filed|filing\s+date|date\s+of\s+report)[^0-9]{0,40}(\d{4}-\d{2}-\d{2})`)
	labeledUSRe  = regexp.MustCompile(`(?i)(?:filed|filing\s+date|date\s+of\s+report)[^0-9]{0,40}(\d{1,2}/\d{1,2}/\d{4})`)

	fiscalYearRe = regexp.MustCompile(`(?i)fiscal\s+year\s+end(?:ed|ing)?[^0-9A-Za-z]{0,10}([A-Za-z]+\s+\d{1,2},?\s+\d{4}|\d{2}/\d{2}|\d{4}-\d{2}-\d{2})`)
)

// MetadataExtractor regex-scans the head of the document for the accession
// number, filing date, and fiscal year end.
type MetadataExtractor struct {
	Now func() time.Time
}

func (MetadataExtractor) FieldName() string { return "filing_metadata" }

func (MetadataExtractor) Validate(value any) bool {
	md, ok := value.(*Metadata)
	return ok && (md.AccessionNumber != "" || md.FilingDate != "" || md.FiscalYearEnd != "")
}

func (e MetadataExtractor) Extract(doc *Document) (any, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	head := string(doc.Head(headScanBytes))
	md := &Metadata{}

	if m := accessionRe.FindStringSubmatch(head); m != nil {
		md.AccessionNumber = m[1]
	}
	if m := labeledISORe.FindStringSubmatch(head); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil && yearInRange(d.Year(), now) {
			md.FilingDate = d.Format("2006-01-02")
		}
	}
	if md.FilingDate == "" {
		if m := labeledUSRe.FindStringSubmatch(head); m != nil {
			if d, err := time.Parse("1/2/2006", m[1]); err == nil && yearInRange(d.Year(), now) {
				md.FilingDate = d.Format("2006-01-02")
			}
		}
	}
	if m := fiscalYearRe.FindStringSubmatch(head); m != nil {
		md.FiscalYearEnd = strings.TrimSpace(m[1])
	}

	if md.AccessionNumber == "" && md.FilingDate == "" && md.FiscalYearEnd == "" {
		return nil, eris.New("extract: no filing metadata in document head")
	}
	return md, nil
}

func yearInRange(year int, now time.Time) bool {
	return year >= 1990 && year <= now.Year()+1
}
