package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/edgar-graph/internal/cache"
	"github.com/sells-group/edgar-graph/internal/config"
	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/graph"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/resilience"
	"github.com/sells-group/edgar-graph/pkg/edgar"
	"github.com/sells-group/edgar-graph/pkg/filingapi"
)

// Flags shared by every stage command. Stages default to dry-run; nothing
// is written until --execute is passed.
var (
	flagExecute      bool
	flagLimit        int
	flagWorkers      int
	flagBatchSize    int
	flagUniverseFile string
)

func addStageFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagExecute, "execute", false, "perform writes (default is dry-run)")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "process at most N companies (0 = all)")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size (0 = configured default)")
	cmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "write batch size (0 = configured default)")
	cmd.Flags().StringVar(&flagUniverseFile, "universe-file", "", "YAML file scoping the run to a curated company list")
}

func workerCount() int {
	if flagWorkers > 0 {
		return flagWorkers
	}
	return cfg.Workers()
}

// appEnv holds the shared clients a stage needs. Graph connectivity is only
// established when the stage asks for it, so cache-only commands run
// without a reachable database.
type appEnv struct {
	Store   cache.Store
	Fetch   fetcher.Fetcher
	Edgar   edgar.Client
	Filing  filingapi.Client
	Loader  *graph.Loader
	closers []func()
}

// Close releases resources in reverse acquisition order.
func (e *appEnv) Close(ctx context.Context) {
	if e.Loader != nil {
		_ = e.Loader.Close(ctx)
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEnv opens the cache, builds the rate-limited fetcher and provider
// clients, and optionally connects the graph. The stage name routes logs to
// a per-stage file.
func initEnv(ctx context.Context, stage string, needGraph bool) (*appEnv, error) {
	env := &appEnv{}

	logCleanup, err := config.InitStageLogger(cfg.Log, cfg.Paths.LogsDir, stage)
	if err != nil {
		return nil, eris.Wrap(err, "init stage logger")
	}
	env.closers = append(env.closers, logCleanup)

	limiters := fetcher.SharedLimiters()
	if cfg.Edgar.Rate > 0 {
		limiters.SetRate(fetcher.SourceSEC, cfg.Edgar.Rate)
	}
	if cfg.Edgar.ArchiveRate > 0 {
		limiters.SetRate(fetcher.SourceSECArchive, cfg.Edgar.ArchiveRate)
	}
	if cfg.Embedding.Rate > 0 {
		limiters.SetRate(fetcher.SourceEmbeddings, cfg.Embedding.Rate)
	}

	env.Fetch = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Edgar.UserAgent,
		Limiters:  limiters,
	})
	env.Edgar = edgar.New(env.Fetch)

	// Paid provider requests bill per call, so their fetcher gets the
	// single-retry budget instead of the free-path one.
	paidFetch := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Edgar.UserAgent,
		Retry:     resilience.PaidConfig(),
		Limiters:  limiters,
	})
	env.Filing = filingapi.New(paidFetch, cfg.FilingAPI.Key)

	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		env.Close(ctx)
		return nil, eris.Wrap(err, "open artifact cache")
	}
	env.Store = store

	if needGraph {
		loader, err := graph.NewLoader(ctx, cfg.Graph)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
		env.Loader = loader
	}
	return env, nil
}

// universe returns the companies a stage iterates over: a curated YAML list
// when --universe-file is set, the graph when fromGraph is set, the SEC
// ticker file otherwise. flagLimit caps any source.
func universe(ctx context.Context, env *appEnv, fromGraph bool) ([]model.Company, error) {
	if flagUniverseFile != "" {
		companies, err := loadUniverseFile(flagUniverseFile)
		if err != nil {
			return nil, err
		}
		if flagLimit > 0 && len(companies) > flagLimit {
			companies = companies[:flagLimit]
		}
		zap.L().Info("company universe loaded from file",
			zap.String("path", flagUniverseFile), zap.Int("companies", len(companies)))
		return companies, nil
	}
	if fromGraph {
		if env.Loader == nil {
			return nil, eris.New("company universe from graph requested without a graph connection")
		}
		return env.Loader.Companies(ctx, flagLimit)
	}
	companies, err := env.Edgar.CompanyTickers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "fetch company universe")
	}
	if flagLimit > 0 && len(companies) > flagLimit {
		companies = companies[:flagLimit]
	}
	zap.L().Info("company universe loaded", zap.Int("companies", len(companies)))
	return companies, nil
}

// loadUniverseFile parses a curated company list. Entries with an invalid CIK
// are skipped with a warning rather than failing the stage.
func loadUniverseFile(path string) ([]model.Company, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read universe file %s", path)
	}
	var entries []model.Company
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "parse universe file %s", path)
	}

	out := entries[:0]
	for _, c := range entries {
		padded := model.PadCIK(c.CIK)
		if padded == "" {
			zap.L().Warn("skipping universe entry with invalid cik",
				zap.String("cik", c.CIK), zap.String("ticker", c.Ticker))
			continue
		}
		c.CIK = padded
		out = append(out, c)
	}
	return out, nil
}
