// Package finviz scrapes the Finviz quote page for fallback website and
// classification signals.
package finviz

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

const defaultBaseURL = "https://finviz.com"

// Quote holds the fields scraped from a Finviz quote page.
type Quote struct {
	Website  string
	Sector   string
	Industry string
}

// Client defines the Finviz operations.
type Client interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

type httpClient struct {
	f       fetcher.Fetcher
	baseURL string
}

// Option configures the Finviz client.
type Option func(*httpClient)

// WithBaseURL overrides the endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// New creates a Finviz scrape client.
func New(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{f: f, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Quote(ctx context.Context, ticker string) (*Quote, error) {
	u := fmt.Sprintf("%s/quote.ashx?t=%s", c.baseURL, url.QueryEscape(strings.ToUpper(ticker)))

	body, err := c.f.Get(ctx, fetcher.SourceFinviz, u, map[string]string{
		"Accept": "text/html",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "finviz: fetch quote for %s", ticker)
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "finviz: parse quote page for %s", ticker)
	}

	q := &Quote{}

	// The website link sits in the quote header; older layouts carry it in
	// the ticker title link.
	doc.Find("a.tab-link, .quote-header a, a.quote-link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if strings.HasPrefix(href, "http") && !strings.Contains(href, "finviz.com") {
			q.Website = href
			return false
		}
		return true
	})

	// Sector / industry come from the classification links row.
	var links []string
	doc.Find(".quote-links a, a.tab-link").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.Contains(href, "screener.ashx") {
			links = append(links, strings.TrimSpace(s.Text()))
		}
	})
	if len(links) > 0 {
		q.Sector = links[0]
	}
	if len(links) > 1 {
		q.Industry = links[1]
	}

	if q.Website == "" && q.Sector == "" {
		return nil, eris.Wrapf(resilience.ErrNotFound, "finviz: no quote data for %s", ticker)
	}
	return q, nil
}
