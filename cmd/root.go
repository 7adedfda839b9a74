package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "edgar-graph",
	Short: "10-K knowledge graph pipeline",
	Long:  "Downloads SEC 10-K filings, extracts structured fields and narrative sections, resolves company domains by multi-source consensus, and loads an embedded, searchable knowledge graph.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
