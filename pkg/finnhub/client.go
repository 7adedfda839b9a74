// Package finnhub provides a client for the Finnhub company profile API.
// A missing API key yields a disabled client; the consensus collector skips
// disabled sources.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Profile is the Finnhub company profile.
type Profile struct {
	Name      string  `json:"name"`
	WebURL    string  `json:"weburl"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"`
}

// Client defines the Finnhub operations.
type Client interface {
	Enabled() bool
	Profile(ctx context.Context, ticker string) (*Profile, error)
}

type httpClient struct {
	f       fetcher.Fetcher
	key     string
	baseURL string
}

// Option configures the Finnhub client.
type Option func(*httpClient)

// WithBaseURL overrides the endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// New creates a Finnhub client. An empty key yields a disabled client.
func New(f fetcher.Fetcher, key string, opts ...Option) Client {
	c := &httpClient{f: f, key: key, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Enabled() bool { return c.key != "" }

func (c *httpClient) Profile(ctx context.Context, ticker string) (*Profile, error) {
	if !c.Enabled() {
		return nil, eris.New("finnhub: no API key configured")
	}

	u := fmt.Sprintf("%s/stock/profile2?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(ticker), url.QueryEscape(c.key))

	data, err := c.f.GetBytes(ctx, fetcher.SourceFinnhub, u, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "finnhub: fetch profile for %s", ticker)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "finnhub: decode profile for %s", ticker)
	}
	if p.Name == "" && p.WebURL == "" {
		return nil, eris.Wrapf(resilience.ErrNotFound, "finnhub: empty profile for %s", ticker)
	}
	return &p, nil
}
