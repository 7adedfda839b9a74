package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the artifact cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-namespace entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		stats, err := env.Store.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <namespace>",
	Short: "Remove every entry in a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		if !flagExecute {
			count, err := env.Store.Count(ctx, args[0])
			if err != nil {
				return err
			}
			zap.L().Info("dry run: would clear namespace",
				zap.String("namespace", args[0]),
				zap.Int64("entries", count),
			)
			return nil
		}

		removed, err := env.Store.ClearNamespace(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "clear namespace %s", args[0])
		}
		zap.L().Info("namespace cleared",
			zap.String("namespace", args[0]),
			zap.Int64("removed", removed),
		)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache", false)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		removed, err := env.Store.Sweep(ctx)
		if err != nil {
			return eris.Wrap(err, "cache sweep")
		}
		zap.L().Info("cache swept", zap.Int64("removed", removed))
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&flagExecute, "execute", false, "perform the deletion (default is dry-run)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
