// Package fetcher provides the rate-limited HTTP fabric shared by every
// pipeline stage, plus secure tar extraction for filing archives.
package fetcher

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Source names for the limiter registry. Limiters are process singletons per
// source and survive across pipeline stages.
const (
	SourceSEC        = "sec"
	SourceSECArchive = "sec_archive"
	SourceFinviz     = "finviz"
	SourceFinnhub    = "finnhub"
	SourceYahoo      = "yahoo"
	SourceEmbeddings = "embeddings"
)

// Limiters is a keyed registry of per-source rate limiters. Each limiter has
// burst 1, so consecutive calls are spaced at least 1/rate seconds apart.
type Limiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// DefaultRates holds the per-source request rates (events per second).
var DefaultRates = map[string]float64{
	SourceSEC:        10,
	SourceSECArchive: 5,
	SourceFinviz:     5,
	SourceFinnhub:    1,
	SourceYahoo:      10,
	SourceEmbeddings: 100,
}

var (
	registry     *Limiters
	registryOnce sync.Once
)

// SharedLimiters returns the process-wide limiter registry with default rates.
func SharedLimiters() *Limiters {
	registryOnce.Do(func() {
		registry = NewLimiters(DefaultRates)
	})
	return registry
}

// NewLimiters builds a registry from per-source rates. Unknown sources fall
// back to a conservative 1/s limiter on first use.
func NewLimiters(rates map[string]float64) *Limiters {
	l := &Limiters{limiters: make(map[string]*rate.Limiter, len(rates))}
	for name, r := range rates {
		l.limiters[name] = rate.NewLimiter(rate.Limit(r), 1)
	}
	return l
}

// Wait blocks until the named source's next slot, or until ctx is done.
func (l *Limiters) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	lim, ok := l.limiters[source]
	if !ok {
		lim = rate.NewLimiter(1, 1)
		l.limiters[source] = lim
	}
	l.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return eris.Wrapf(err, "rate limiter wait for %s", source)
	}
	return nil
}

// SetRate overrides the rate for a source, creating the limiter if needed.
func (l *Limiters) SetRate(source string, perSecond float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[source]; ok {
		lim.SetLimit(rate.Limit(perSecond))
		return
	}
	l.limiters[source] = rate.NewLimiter(rate.Limit(perSecond), 1)
}
