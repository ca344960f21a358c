package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the enrichment cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache record and alias counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var cacheAliasLimit int

var cacheAliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "List learned alias mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		aliases, err := st.ListAliases(ctx, cacheAliasLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(aliases)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete records whose volatility groups are all expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		purged, err := st.PurgeExpired(ctx, cfg.Engine.TTL)
		if err != nil {
			return err
		}

		zap.L().Info("cache purge complete", zap.Int("purged", purged))
		return nil
	},
}

func init() {
	cacheAliasesCmd.Flags().IntVar(&cacheAliasLimit, "limit", 50, "max aliases to list")
	cacheCmd.AddCommand(cacheStatsCmd, cacheAliasesCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
