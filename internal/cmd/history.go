package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quotaflow/quotaflow/internal/core/store"
	"github.com/quotaflow/quotaflow/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent call history",
	Long:  "List recent executed calls from the journal, newest first.",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("service", "", "filter by service")
	historyCmd.Flags().Int("limit", 50, "maximum entries to show")
	historyCmd.Flags().StringP("output", "o", "table", "output format: table, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := cmd.Flags().GetString("service")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

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
		return errors.New("the store is disabled; history requires store.enabled")
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	entries, err := db.ListJournal(ctx, store.JournalQuery{Service: service, Limit: limit})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no journal entries")
		return nil
	}

	rendered, err := output.RenderJournal(format, entries)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Println(rendered)
	}
	return nil
}
