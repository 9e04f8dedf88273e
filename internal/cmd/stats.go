package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and rate-limit state",
	Long: `Show the response cache occupancy and the per-service sliding-window
rate-limit state. State is per process; a fresh CLI invocation starts with
empty windows and an empty in-memory cache.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("output", "o", "table", "output format: table, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireServices(cfg); err != nil {
		return err
	}

	orchestrator := buildOrchestrator(cfg, nil, cliLogger)

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]core.RateLimitStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, orchestrator.RateLimitStatus(name))
	}

	cacheRendered, err := output.RenderCacheStats(format, orchestrator.CacheStats())
	if err != nil {
		return err
	}
	limitsRendered, err := output.RenderRateLimits(format, statuses)
	if err != nil {
		return err
	}

	fmt.Println(cacheRendered)
	fmt.Println(limitsRendered)
	return nil
}
