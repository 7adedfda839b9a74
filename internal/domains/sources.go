package domains

import (
	"context"

	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/pkg/edgar"
	"github.com/sells-group/edgar-graph/pkg/finnhub"
	"github.com/sells-group/edgar-graph/pkg/finviz"
	"github.com/sells-group/edgar-graph/pkg/yahoo"
)

// Base confidences reflect how often each provider's website field points at
// the company's actual domain rather than an IR or listing page.
const (
	yahooConfidence   = 0.9
	edgarConfidence   = 0.85
	finvizConfidence  = 0.7
	finnhubConfidence = 0.6
)

// YahooSource resolves domains from the Yahoo Finance asset profile.
type YahooSource struct {
	Client yahoo.Client
}

func (s *YahooSource) Name() string { return "yfinance" }

func (s *YahooSource) Lookup(ctx context.Context, q Query) (model.DomainResult, error) {
	p, err := s.Client.Profile(ctx, q.Ticker)
	if err != nil {
		return model.DomainResult{}, err
	}
	return model.DomainResult{
		Domain:      p.Website,
		Confidence:  yahooConfidence,
		Description: p.BusinessSummary,
	}, nil
}

// EdgarSource resolves domains from the SEC submissions website fields.
type EdgarSource struct {
	Client edgar.Client
}

func (s *EdgarSource) Name() string { return "sec_edgar" }

func (s *EdgarSource) Lookup(ctx context.Context, q Query) (model.DomainResult, error) {
	sub, err := s.Client.Submissions(ctx, q.CIK)
	if err != nil {
		return model.DomainResult{}, err
	}
	website := sub.Website
	if website == "" {
		website = sub.InvestorWeb
	}
	return model.DomainResult{
		Domain:     website,
		Confidence: edgarConfidence,
	}, nil
}

// FinvizSource resolves domains from the Finviz quote page scrape.
type FinvizSource struct {
	Client finviz.Client
}

func (s *FinvizSource) Name() string { return "finviz" }

func (s *FinvizSource) Lookup(ctx context.Context, q Query) (model.DomainResult, error) {
	quote, err := s.Client.Quote(ctx, q.Ticker)
	if err != nil {
		return model.DomainResult{}, err
	}
	return model.DomainResult{
		Domain:     quote.Website,
		Confidence: finvizConfidence,
	}, nil
}

// FinnhubSource resolves domains from the Finnhub company profile.
type FinnhubSource struct {
	Client finnhub.Client
}

func (s *FinnhubSource) Name() string { return "finnhub" }

func (s *FinnhubSource) Lookup(ctx context.Context, q Query) (model.DomainResult, error) {
	p, err := s.Client.Profile(ctx, q.Ticker)
	if err != nil {
		return model.DomainResult{}, err
	}
	return model.DomainResult{
		Domain:     p.WebURL,
		Confidence: finnhubConfidence,
	}, nil
}
