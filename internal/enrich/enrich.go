// Package enrich fills company records from SEC submissions and Yahoo
// Finance, merging with source priority and caching the merged record.
package enrich

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/resilience"
	"github.com/sells-group/edgar-graph/pkg/edgar"
	"github.com/sells-group/edgar-graph/pkg/yahoo"
)

// Enricher fetches both sources in parallel and merges. SEC wins on
// identity and classification fields, Yahoo on financials and narrative.
type Enricher struct {
	edgar edgar.Client
	yahoo yahoo.Client
	store cache.Store
}

// New wires the two sources and the artifact cache.
func New(e edgar.Client, y yahoo.Client, store cache.Store) *Enricher {
	return &Enricher{edgar: e, yahoo: y, store: store}
}

// Enrich populates company from both sources. Per-source absence is
// tolerated; total absence leaves the input untouched. A cached merged
// record short-circuits both fetches.
func (e *Enricher) Enrich(ctx context.Context, company model.Company) (model.Company, error) {
	cik := model.PadCIK(company.CIK)
	if cik == "" {
		return company, eris.Errorf("enrich: invalid cik %q", company.CIK)
	}
	company.CIK = cik

	if cached, ok := e.cached(ctx, cik); ok {
		return mergeCompany(company, cached), nil
	}

	var (
		sub     *edgar.Submissions
		profile *yahoo.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := e.edgar.Submissions(gctx, cik)
		if err != nil {
			if eris.Is(err, resilience.ErrNotFound) {
				return nil
			}
			return err
		}
		sub = s
		return nil
	})
	g.Go(func() error {
		if company.Ticker == "" || e.yahoo == nil {
			return nil
		}
		p, err := e.yahoo.Profile(gctx, company.Ticker)
		if err != nil {
			if eris.Is(err, resilience.ErrNotFound) {
				return nil
			}
			zap.L().Debug("enrich: yahoo lookup failed",
				zap.String("ticker", company.Ticker),
				zap.Error(err),
			)
			return nil
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return company, eris.Wrapf(err, "enrich: %s", cik)
	}

	enriched := applySEC(company, sub)
	enriched = applyYahoo(enriched, profile)
	e.cacheMerged(ctx, cik, enriched)
	return enriched, nil
}

func applySEC(c model.Company, sub *edgar.Submissions) model.Company {
	if sub == nil {
		return c
	}
	setIfEmpty(&c.LegalName, sub.Name)
	setIfEmpty(&c.SICCode, sub.SIC)
	setIfEmpty(&c.Industry, sub.SICDescription)
	setIfEmpty(&c.FiscalYearEnd, sub.FiscalYearEnd)
	setIfEmpty(&c.Website, sub.Website)
	if c.Website == "" {
		c.Website = sub.InvestorWeb
	}
	if c.Ticker == "" && len(sub.Tickers) > 0 {
		c.Ticker = sub.Tickers[0]
	}
	return c
}

func applyYahoo(c model.Company, p *yahoo.Profile) model.Company {
	if p == nil {
		return c
	}
	setIfEmpty(&c.Sector, p.Sector)
	setIfEmpty(&c.Industry, p.Industry)
	setIfEmpty(&c.BusinessDescription, p.BusinessSummary)
	setIfEmpty(&c.HQCity, p.City)
	setIfEmpty(&c.HQState, p.State)
	setIfEmpty(&c.HQCountry, p.Country)
	setIfEmpty(&c.Website, p.Website)
	if c.MarketCap == 0 {
		c.MarketCap = p.MarketCap
	}
	if c.Revenue == 0 {
		c.Revenue = p.Revenue
	}
	if c.Employees == 0 {
		c.Employees = p.Employees
	}
	return c
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// mergeCompany overlays cached fields onto the input without clobbering
// anything the caller already knows.
func mergeCompany(base, cached model.Company) model.Company {
	out := base
	raw, err := json.Marshal(cached)
	if err != nil {
		return out
	}
	// Unmarshal over a copy so zero-valued cached fields do not erase base
	// fields; omitempty keeps them out of the payload.
	if err := json.Unmarshal(raw, &out); err != nil {
		return base
	}
	setIfEmpty(&out.CIK, base.CIK)
	setIfEmpty(&out.Ticker, base.Ticker)
	setIfEmpty(&out.Name, base.Name)
	return out
}

func (e *Enricher) cached(ctx context.Context, cik string) (model.Company, bool) {
	if e.store == nil {
		return model.Company{}, false
	}
	raw, ok, err := e.store.Get(ctx, cache.NSCompanyProperties, cik)
	if err != nil || !ok {
		return model.Company{}, false
	}
	var c model.Company
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Company{}, false
	}
	return c, true
}

func (e *Enricher) cacheMerged(ctx context.Context, cik string, c model.Company) {
	if e.store == nil {
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, cache.NSCompanyProperties, cik, raw, cache.TTLDomain); err != nil {
		zap.L().Warn("enrich: cache write failed", zap.String("cik", cik), zap.Error(err))
	}
}
