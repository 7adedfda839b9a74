package domains

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/model"
)

// Query identifies the company a source should look up.
type Query struct {
	CIK    string
	Ticker string
	Name   string
}

// Source is a single provider of domain candidates.
type Source interface {
	// Name returns the registry name used for weighting ("yfinance", ...).
	Name() string

	// Lookup returns the source's verdict. An empty Domain with nil error
	// means the source responded but found nothing.
	Lookup(ctx context.Context, q Query) (model.DomainResult, error)
}

// DefaultWeights are the fixed source weights for the consensus vote.
var DefaultWeights = map[string]float64{
	"yfinance":  3.0,
	"sec_edgar": 2.5,
	"finviz":    2.0,
	"finnhub":   1.0,
}

// Collector fans a query out to all registered sources and runs the weighted
// vote.
type Collector struct {
	sources   []Source
	weights   map[string]float64
	earlyStop float64
	timeout   time.Duration
}

// NewCollector builds a collector. Zero earlyStop defaults to 0.75, zero
// timeout to 30s, nil weights to DefaultWeights.
func NewCollector(sources []Source, weights map[string]float64, earlyStop float64, timeout time.Duration) *Collector {
	if weights == nil {
		weights = DefaultWeights
	}
	if earlyStop <= 0 {
		earlyStop = 0.75
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Collector{sources: sources, weights: weights, earlyStop: earlyStop, timeout: timeout}
}

func (c *Collector) weight(source string) float64 {
	if w, ok := c.weights[source]; ok {
		return w
	}
	return 1.0
}

type sourceReply struct {
	result model.DomainResult
	err    error
}

// Collect runs the weighted consensus for one company. Individual source
// failures are logged and treated as non-responses; they never abort the
// vote. Candidates are normalized through Normalize before scoring.
func (c *Collector) Collect(ctx context.Context, q Query) model.CompanyResult {
	out := model.CompanyResult{
		CIK:         q.CIK,
		Ticker:      q.Ticker,
		Candidates:  make(map[string]float64),
		CollectedAt: time.Now().UTC(),
	}
	if len(c.sources) == 0 {
		out.NoDomain = true
		return out
	}

	replies := make(chan sourceReply, len(c.sources))
	for _, src := range c.sources {
		go func(src Source) {
			srcCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			res, err := src.Lookup(srcCtx, q)
			res.Source = src.Name()
			replies <- sourceReply{result: res, err: err}
		}(src)
	}

	// sum of all registered weights, for the early-stop ratio.
	var totalWeight float64
	for _, src := range c.sources {
		totalWeight += c.weight(src.Name())
	}

	scores := make(map[string]float64)
	descScores := make(map[string]float64)
	votes := make(map[string][]string)  // domain -> sources that voted for it
	var responded []string              // sources that returned a domain
	var respondedWeight float64

	deadline := time.NewTimer(c.timeout + time.Second)
	defer deadline.Stop()

	received := 0
collect:
	for received < len(c.sources) {
		select {
		case <-ctx.Done():
			break collect
		case <-deadline.C:
			zap.L().Debug("consensus: deadline reached with sources outstanding",
				zap.String("ticker", q.Ticker),
				zap.Int("received", received),
			)
			break collect
		case reply := <-replies:
			received++
			if reply.err != nil {
				zap.L().Debug("consensus: source failed",
					zap.String("ticker", q.Ticker),
					zap.String("source", reply.result.Source),
					zap.Error(reply.err),
				)
				continue
			}

			domain := Normalize(reply.result.Domain)
			if domain == "" {
				continue
			}

			w := c.weight(reply.result.Source)
			conf := clamp01(reply.result.Confidence)
			scores[domain] += w * conf
			votes[domain] = append(votes[domain], reply.result.Source)
			responded = append(responded, reply.result.Source)
			respondedWeight += w

			if reply.result.Description != "" {
				descScores[reply.result.Description] += w * conf
			}

			if len(responded) >= 2 && c.shouldStop(scores, totalWeight, votes) {
				break collect
			}
		}
	}

	out.Candidates = scores
	if len(scores) == 0 {
		out.NoDomain = true
		return out
	}

	winner, winnerScore := argmax(scores)
	out.Domain = winner
	out.Sources = votes[winner]
	sort.Strings(out.Sources)
	if respondedWeight > 0 {
		out.Confidence = clamp01(winnerScore / respondedWeight)
	}
	out.Description = bestDescription(descScores)
	return out
}

// shouldStop reports whether the outcome is already determined: either every
// responded source agrees on one domain, or the leader's share of the total
// registered weight has reached the early-stop ratio.
func (c *Collector) shouldStop(scores map[string]float64, totalWeight float64, votes map[string][]string) bool {
	if len(scores) == 1 {
		return true
	}
	if totalWeight <= 0 {
		return false
	}
	_, best := argmax(scores)
	return best/totalWeight >= c.earlyStop
}

func argmax(scores map[string]float64) (string, float64) {
	var bestKey string
	var bestVal float64
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic tie-break
	for _, k := range keys {
		if v := scores[k]; v > bestVal {
			bestKey, bestVal = k, v
		}
	}
	return bestKey, bestVal
}

func bestDescription(scores map[string]float64) string {
	desc, _ := argmax(scores)
	return desc
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
