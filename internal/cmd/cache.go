package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses from the store",
	RunE:  runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cached responses from the store",
	RunE:  runCachePrune,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("the store is disabled; nothing to clear")
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.ClearResponses(ctx); err != nil {
		return err
	}

	fmt.Println("cache cleared")
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("the store is disabled; nothing to prune")
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	pruned, err := db.PruneExpired(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("pruned %d expired entries\n", pruned)
	return nil
}
