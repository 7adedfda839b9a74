package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/enrich"
	"github.com/sells-group/edgar-graph/internal/model"
	"github.com/sells-group/edgar-graph/internal/pipeline"
	"github.com/sells-group/edgar-graph/pkg/yahoo"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich company records from SEC submissions and Yahoo Finance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "enrich", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		companies, err := universe(ctx, env, false)
		if err != nil {
			return err
		}

		if !flagExecute {
			zap.L().Info("dry run: would enrich companies", zap.Int("companies", len(companies)))
			return nil
		}

		enricher := enrich.New(env.Edgar, yahoo.New(env.Fetch), env.Store)
		stats := pipeline.NewStats()
		err = pipeline.Run(ctx, workerCount(), companies, stats, func(ctx context.Context, c model.Company) error {
			enriched, err := enricher.Enrich(ctx, c)
			if err != nil {
				return err
			}
			if enriched == c {
				stats.NoDataResult()
				return nil
			}
			stats.Success()
			return nil
		})
		stats.LogSummary("enrich")
		return err
	},
}

func init() {
	addStageFlags(enrichCmd)
	rootCmd.AddCommand(enrichCmd)
}
