// Package edgar provides a client for SEC EDGAR: the company universe,
// per-filer submissions metadata, and 10-K archive downloads.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/model"
)

const (
	defaultWWWBase  = "https://www.sec.gov"
	defaultDataBase = "https://data.sec.gov"
)

// Client defines the EDGAR operations the pipeline uses.
type Client interface {
	// CompanyTickers returns the full SEC company universe.
	CompanyTickers(ctx context.Context) ([]model.Company, error)

	// Submissions returns the filings metadata for one CIK.
	Submissions(ctx context.Context, cik string) (*Submissions, error)

	// LatestTenK returns the most recent 10-K accession within [start, end].
	// Returns resilience.ErrNotFound (wrapped) when none exists.
	LatestTenK(ctx context.Context, cik string, start, end time.Time) (*Filing, error)

	// DownloadArchive downloads the submission archive for an accession into
	// destDir at the long-duration archive rate. Returns the archive path.
	DownloadArchive(ctx context.Context, cik, accession, destDir string) (string, error)
}

// Filing is one filing row from the submissions recent arrays.
type Filing struct {
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	PrimaryDoc      string
}

// Submissions is the parsed data.sec.gov submissions payload for one filer.
type Submissions struct {
	CIK            json.Number `json:"cik"`
	Name           string      `json:"name"`
	SIC            string      `json:"sic"`
	SICDescription string      `json:"sicDescription"`
	FiscalYearEnd  string      `json:"fiscalYearEnd"`
	Website        string      `json:"website"`
	InvestorWeb    string      `json:"investorWebsite"`
	Tickers        []string    `json:"tickers"`
	Filings        struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDoc      []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

type httpClient struct {
	f        fetcher.Fetcher
	wwwBase  string
	dataBase string
}

// Option configures the EDGAR client.
type Option func(*httpClient)

// WithBaseURLs overrides the www and data endpoints (for testing).
func WithBaseURLs(www, data string) Option {
	return func(c *httpClient) {
		c.wwwBase = www
		c.dataBase = data
	}
}

// New creates an EDGAR client on top of the rate-limited fetcher.
func New(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{f: f, wwwBase: defaultWWWBase, dataBase: defaultDataBase}
	for _, o := range opts {
		o(c)
	}
	return c
}

// companyTickersEntry matches the company_tickers.json row format.
type companyTickersEntry struct {
	CIK    json.Number `json:"cik_str"`
	Ticker string      `json:"ticker"`
	Title  string      `json:"title"`
}

func (c *httpClient) CompanyTickers(ctx context.Context) ([]model.Company, error) {
	url := c.wwwBase + "/files/company_tickers.json"
	data, err := c.f.GetBytes(ctx, fetcher.SourceSEC, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "edgar: fetch company tickers")
	}

	// The payload is an object keyed by row index, not an array.
	var raw map[string]companyTickersEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "edgar: decode company tickers")
	}

	companies := make([]model.Company, 0, len(raw))
	for _, e := range raw {
		cik := model.PadCIK(e.CIK.String())
		if cik == "" || e.Ticker == "" {
			continue
		}
		companies = append(companies, model.Company{
			CIK:    cik,
			Ticker: strings.ToUpper(e.Ticker),
			Name:   e.Title,
		})
	}
	return companies, nil
}

func (c *httpClient) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	padded := model.PadCIK(cik)
	if padded == "" {
		return nil, eris.Errorf("edgar: invalid cik %q", cik)
	}

	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBase, padded)
	data, err := c.f.GetBytes(ctx, fetcher.SourceSEC, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch submissions for %s", padded)
	}

	var sub Submissions
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, eris.Wrapf(err, "edgar: decode submissions for %s", padded)
	}
	return &sub, nil
}

func (c *httpClient) LatestTenK(ctx context.Context, cik string, start, end time.Time) (*Filing, error) {
	sub, err := c.Submissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	recent := sub.Filings.Recent
	var latest *Filing
	for i, form := range recent.Form {
		if form != "10-K" {
			continue
		}
		if i >= len(recent.AccessionNumber) || i >= len(recent.FilingDate) {
			continue
		}
		filed, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		if filed.Before(start) || filed.After(end) {
			continue
		}
		if latest == nil || filed.After(latest.FilingDate) {
			f := Filing{
				AccessionNumber: recent.AccessionNumber[i],
				Form:            form,
				FilingDate:      filed,
			}
			if i < len(recent.PrimaryDoc) {
				f.PrimaryDoc = recent.PrimaryDoc[i]
			}
			latest = &f
		}
	}

	if latest == nil {
		return nil, noTenKError(cik, start, end)
	}
	return latest, nil
}

func (c *httpClient) DownloadArchive(ctx context.Context, cik, accession, destDir string) (string, error) {
	padded := model.PadCIK(cik)
	bare := strings.ReplaceAll(accession, "-", "")
	url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s.tar",
		c.wwwBase, strings.TrimLeft(padded, "0"), bare)

	dest := filepath.Join(destDir, bare+".tar")
	if _, err := c.f.DownloadToFile(ctx, fetcher.SourceSECArchive, url, dest); err != nil {
		return "", eris.Wrapf(err, "edgar: download archive %s", accession)
	}
	return dest, nil
}
