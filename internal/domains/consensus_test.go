package domains

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-graph/internal/model"
)

// fakeSource replies with a fixed result after an optional delay.
type fakeSource struct {
	name   string
	result model.DomainResult
	err    error
	delay  time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Lookup(ctx context.Context, _ Query) (model.DomainResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.DomainResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func appleQuery() Query {
	return Query{CIK: "0000320193", Ticker: "AAPL", Name: "Apple Inc."}
}

func TestCollect_Unanimous(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "yfinance", result: model.DomainResult{Domain: "apple.com", Confidence: 0.9}},
		&fakeSource{name: "sec_edgar", result: model.DomainResult{Domain: "https://www.apple.com", Confidence: 0.9}},
		&fakeSource{name: "finviz", result: model.DomainResult{Domain: "apple.com", Confidence: 0.9}, delay: 100 * time.Millisecond},
		&fakeSource{name: "finnhub", result: model.DomainResult{Domain: "apple.com", Confidence: 0.9}, delay: 100 * time.Millisecond},
	}
	c := NewCollector(sources, nil, 0, 5*time.Second)

	result := c.Collect(context.Background(), appleQuery())

	assert.Equal(t, "apple.com", result.Domain)
	assert.False(t, result.NoDomain)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	// The two fast heavy sources agree, so the vote stops early without the
	// delayed sources.
	assert.Equal(t, []string{"sec_edgar", "yfinance"}, result.Sources)
}

func TestCollect_WeightedTieBreak(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "yfinance", result: model.DomainResult{Domain: "apple.com", Confidence: 0.9}},
		&fakeSource{name: "finviz", result: model.DomainResult{Domain: "microsoft.com", Confidence: 0.7}},
		&fakeSource{name: "sec_edgar", result: model.DomainResult{Domain: "apple.com", Confidence: 0.85}},
		&fakeSource{name: "finnhub", result: model.DomainResult{Domain: "apple.com", Confidence: 0.6}},
	}
	c := NewCollector(sources, nil, 0, 5*time.Second)

	result := c.Collect(context.Background(), appleQuery())

	assert.Equal(t, "apple.com", result.Domain)
	assert.NotContains(t, result.Sources, "finviz")
	assert.Greater(t, result.Confidence, 0.0)
}

func TestCollect_ZeroCandidates(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "yfinance", result: model.DomainResult{}},
		&fakeSource{name: "sec_edgar", err: context.DeadlineExceeded},
		&fakeSource{name: "finviz", result: model.DomainResult{Domain: "sec.gov", Confidence: 0.9}},
	}
	c := NewCollector(sources, nil, 0, 5*time.Second)

	result := c.Collect(context.Background(), appleQuery())

	assert.True(t, result.NoDomain)
	assert.Empty(t, result.Domain)
	assert.Zero(t, result.Confidence)
}

func TestCollect_SourceFailureDoesNotAbort(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "yfinance", err: context.DeadlineExceeded},
		&fakeSource{name: "sec_edgar", result: model.DomainResult{Domain: "apple.com", Confidence: 0.85}},
	}
	c := NewCollector(sources, nil, 0, 5*time.Second)

	result := c.Collect(context.Background(), appleQuery())

	require.False(t, result.NoDomain)
	assert.Equal(t, "apple.com", result.Domain)
	assert.Equal(t, []string{"sec_edgar"}, result.Sources)
}

func TestCollect_NormalizesCandidates(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "yfinance", result: model.DomainResult{Domain: "https://www.apple.com/investor", Confidence: 0.9}},
		&fakeSource{name: "sec_edgar", result: model.DomainResult{Domain: "investor.apple.com", Confidence: 0.85}},
	}
	c := NewCollector(sources, nil, 0, 5*time.Second)

	result := c.Collect(context.Background(), appleQuery())

	assert.Equal(t, "apple.com", result.Domain)
	assert.Len(t, result.Candidates, 1)
}

func TestCollect_NoSources(t *testing.T) {
	c := NewCollector(nil, nil, 0, time.Second)
	result := c.Collect(context.Background(), appleQuery())
	assert.True(t, result.NoDomain)
}
