package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/filing"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/pipeline"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

var (
	downloadDateStart  string
	downloadDateEnd    string
	downloadForce      bool
	downloadNoPreCheck bool
	downloadFromGraph  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download 10-K archives and extract primary documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		start, end, err := filingDateRange()
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "download", downloadFromGraph)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		companies, err := universe(ctx, env, downloadFromGraph)
		if err != nil {
			return err
		}

		if !flagExecute {
			zap.L().Info("dry run: would download filings",
				zap.Int("companies", len(companies)),
				zap.Time("date_start", start),
				zap.Time("date_end", end),
				zap.Bool("paid_provider", env.Filing.Enabled()),
			)
			return nil
		}

		acquirer := filing.NewAcquirer(env.Edgar, env.Filing, env.Store, cfg.Paths.PortfoliosDir, cfg.Paths.FilingsDir)
		opts := filing.Options{
			Start:      start,
			End:        end,
			Force:      downloadForce,
			NoPreCheck: downloadNoPreCheck,
		}

		stats := pipeline.NewStats()
		err = pipeline.Run(ctx, workerCount(), companies, stats, func(ctx context.Context, c model.Company) error {
			res, err := acquirer.Acquire(ctx, c, opts)
			if err != nil {
				if eris.Is(err, resilience.ErrNotFound) {
					stats.NoDataResult()
					return nil
				}
				return err
			}
			zap.L().Debug("filing downloaded",
				zap.String("cik", res.CIK),
				zap.Int("year", res.Year),
			)
			stats.Success()
			return nil
		})
		stats.LogSummary("download")
		return err
	},
}

// filingDateRange parses the flag pair, defaulting to the trailing two
// years, which always covers the latest annual report.
func filingDateRange() (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(-2, 0, 0)
	var err error
	if downloadDateStart != "" {
		start, err = time.Parse("2006-01-02", downloadDateStart)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrapf(err, "invalid --filing-date-start %q", downloadDateStart)
		}
	}
	if downloadDateEnd != "" {
		end, err = time.Parse("2006-01-02", downloadDateEnd)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrapf(err, "invalid --filing-date-end %q", downloadDateEnd)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, eris.Errorf("--filing-date-end %s precedes --filing-date-start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

func init() {
	addStageFlags(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadDateStart, "filing-date-start", "", "earliest filing date (YYYY-MM-DD)")
	downloadCmd.Flags().StringVar(&downloadDateEnd, "filing-date-end", "", "latest filing date (YYYY-MM-DD)")
	downloadCmd.Flags().BoolVar(&downloadForce, "force", false, "purge and redownload archives for the selected companies")
	downloadCmd.Flags().BoolVar(&downloadNoPreCheck, "no-pre-check", false, "skip the free availability pre-check")
	downloadCmd.Flags().BoolVar(&downloadFromGraph, "from-neo4j", false, "take the company set from the graph instead of SEC")
	rootCmd.AddCommand(downloadCmd)
}
