package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/domains"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/pipeline"
	"github.com/sells-group/edgar-graph/pkg/finnhub"
	"github.com/sells-group/edgar-graph/pkg/finviz"
	"github.com/sells-group/edgar-graph/pkg/yahoo"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Resolve company domains by multi-source consensus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "domains", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		companies, err := universe(ctx, env, false)
		if err != nil {
			return err
		}

		collector := newCollector(env)
		if !flagExecute {
			zap.L().Info("dry run: would resolve domains", zap.Int("companies", len(companies)))
			return nil
		}

		stats := pipeline.NewStats()
		err = pipeline.Run(ctx, workerCount(), companies, stats, func(ctx context.Context, c model.Company) error {
			cik := model.PadCIK(c.CIK)
			if _, hit, err := env.Store.Get(ctx, cache.NSCompanyDomains, cik); err == nil && hit {
				stats.Success()
				return nil
			}

			result := collector.Collect(ctx, domains.Query{CIK: cik, Ticker: c.Ticker, Name: c.Name})
			raw, err := json.Marshal(result)
			if err != nil {
				return eris.Wrapf(err, "marshal consensus for %s", cik)
			}
			ttl := cache.TTLDomain
			if result.NoDomain {
				ttl = cache.TTLNegative
			}
			if err := env.Store.Set(ctx, cache.NSCompanyDomains, cik, raw, ttl); err != nil {
				return eris.Wrapf(err, "cache consensus for %s", cik)
			}
			if result.NoDomain {
				stats.NoDataResult()
				return nil
			}
			zap.L().Debug("domain resolved",
				zap.String("cik", cik),
				zap.String("domain", result.Domain),
				zap.Float64("confidence", result.Confidence),
			)
			stats.Success()
			return nil
		})
		stats.LogSummary("domains")
		return err
	},
}

// newCollector wires the consensus sources. Keyless sources are always on;
// Finnhub joins only when its key is configured.
func newCollector(env *appEnv) *domains.Collector {
	sources := []domains.Source{
		&domains.YahooSource{Client: yahoo.New(env.Fetch)},
		&domains.EdgarSource{Client: env.Edgar},
		&domains.FinvizSource{Client: finviz.New(env.Fetch)},
	}
	if cfg.Finnhub.Key != "" {
		sources = append(sources, &domains.FinnhubSource{Client: finnhub.New(env.Fetch, cfg.Finnhub.Key)})
	}
	return domains.NewCollector(
		sources,
		cfg.Consensus.Weights,
		cfg.Consensus.EarlyStop,
		time.Duration(cfg.Consensus.SourceTimeout)*time.Second,
	)
}

func init() {
	addStageFlags(domainsCmd)
	rootCmd.AddCommand(domainsCmd)
}
