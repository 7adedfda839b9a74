// Package yahoo provides a client for the unofficial Yahoo Finance
// quoteSummary API: business summary, sector, industry, financials, and
// headquarters for a ticker.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

const defaultBaseURL = "https://query2.finance.yahoo.com"

// Profile is the merged company profile for one ticker.
type Profile struct {
	Website         string
	Sector          string
	Industry        string
	BusinessSummary string
	City            string
	State           string
	Country         string
	Employees       int
	MarketCap       float64
	Revenue         float64
}

// Client defines the Yahoo Finance operations.
type Client interface {
	Profile(ctx context.Context, ticker string) (*Profile, error)
}

type httpClient struct {
	f       fetcher.Fetcher
	baseURL string
}

// Option configures the Yahoo client.
type Option func(*httpClient)

// WithBaseURL overrides the endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// New creates a Yahoo Finance client.
func New(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{f: f, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *struct {
				Website             string `json:"website"`
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				LongBusinessSummary string `json:"longBusinessSummary"`
				City                string `json:"city"`
				State               string `json:"state"`
				Country             string `json:"country"`
				FullTimeEmployees   int    `json:"fullTimeEmployees"`
			} `json:"assetProfile"`
			Price *struct {
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			FinancialData *struct {
				TotalRevenue rawValue `json:"totalRevenue"`
			} `json:"financialData"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"quoteSummary"`
}

func (c *httpClient) Profile(ctx context.Context, ticker string) (*Profile, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.baseURL, url.PathEscape(ticker),
		url.QueryEscape("assetProfile,price,financialData"))

	data, err := c.f.GetBytes(ctx, fetcher.SourceYahoo, u, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: fetch profile for %s", ticker)
	}

	var resp quoteSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrapf(err, "yahoo: decode profile for %s", ticker)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, eris.Wrapf(resilience.ErrNotFound, "yahoo: no profile for %s", ticker)
	}

	r := resp.QuoteSummary.Result[0]
	p := &Profile{}
	if ap := r.AssetProfile; ap != nil {
		p.Website = ap.Website
		p.Sector = ap.Sector
		p.Industry = ap.Industry
		p.BusinessSummary = ap.LongBusinessSummary
		p.City = ap.City
		p.State = ap.State
		p.Country = ap.Country
		p.Employees = ap.FullTimeEmployees
	}
	if r.Price != nil {
		p.MarketCap = r.Price.MarketCap.Raw
	}
	if r.FinancialData != nil {
		p.Revenue = r.FinancialData.TotalRevenue.Raw
	}
	return p, nil
}
