// Package filingapi provides a client for the commercial filing archive
// provider. It is the unrestricted download path used when SEC_API_KEY is
// configured; without a key the pipeline falls back to EDGAR at the archive
// rate limit.
package filingapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

const defaultBaseURL = "https://api.sec-api.io"

// Client defines the commercial provider operations.
type Client interface {
	// Enabled reports whether an API key is configured.
	Enabled() bool

	// LatestTenK queries for the latest 10-K accession in the date range.
	// Returns resilience.ErrNotFound (wrapped) when none exists.
	LatestTenK(ctx context.Context, cik string, start, end time.Time) (*Filing, error)

	// DownloadArchive downloads the filing package tar for an accession into
	// destDir. Returns the archive path.
	DownloadArchive(ctx context.Context, cik, accession, destDir string) (string, error)
}

// Filing is one filing hit from the provider's query API.
type Filing struct {
	AccessionNumber string `json:"accessionNo"`
	FormType        string `json:"formType"`
	FiledAt         string `json:"filedAt"`
	PackageURL      string `json:"packageUrl"`
}

type httpClient struct {
	f       fetcher.Fetcher
	key     string
	baseURL string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// New creates a provider client. An empty key yields a disabled client.
func New(f fetcher.Fetcher, key string, opts ...Option) Client {
	c := &httpClient{f: f, key: key, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Enabled() bool { return c.key != "" }

type queryResponse struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Filings []Filing `json:"filings"`
}

func (c *httpClient) LatestTenK(ctx context.Context, cik string, start, end time.Time) (*Filing, error) {
	if !c.Enabled() {
		return nil, eris.New("filingapi: no API key configured")
	}

	q := url.Values{}
	q.Set("token", c.key)
	q.Set("cik", strings.TrimLeft(model.PadCIK(cik), "0"))
	q.Set("formType", "10-K")
	q.Set("dateFrom", start.Format("2006-01-02"))
	q.Set("dateTo", end.Format("2006-01-02"))
	q.Set("size", "1")

	data, err := c.f.GetBytes(ctx, fetcher.SourceSECArchive,
		fmt.Sprintf("%s/filings?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "filingapi: query 10-K for %s", cik)
	}

	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "filingapi: decode query response")
	}
	if len(resp.Filings) == 0 {
		return nil, eris.Wrapf(resilience.ErrNotFound, "filingapi: no 10-K for %s", cik)
	}
	return &resp.Filings[0], nil
}

func (c *httpClient) DownloadArchive(ctx context.Context, cik, accession, destDir string) (string, error) {
	if !c.Enabled() {
		return "", eris.New("filingapi: no API key configured")
	}

	bare := strings.ReplaceAll(accession, "-", "")
	u := fmt.Sprintf("%s/filing-package/%s/%s.tar?token=%s",
		c.baseURL, strings.TrimLeft(model.PadCIK(cik), "0"), bare, url.QueryEscape(c.key))

	dest := filepath.Join(destDir, bare+".tar")
	if _, err := c.f.DownloadToFile(ctx, fetcher.SourceSECArchive, u, dest); err != nil {
		return "", eris.Wrapf(err, "filingapi: download archive %s", accession)
	}
	return dest, nil
}
