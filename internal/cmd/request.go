package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/output"
)

var requestCmd = &cobra.Command{
	Use:   "request <service> <endpoint>",
	Short: "Submit one request through the orchestrator",
	Long: `Submit a single request to a configured service. The request honors the
service's rate limit, is answered from cache when a fresh entry exists, and
is retried with exponential backoff on failure.

Examples:
  quotaflow request market-data /quote --param symbol=AAPL
  quotaflow request llm /complete --method POST --body '{"prompt":"hi"}' --priority 10
  quotaflow request store /documents/42 --no-cache`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().StringP("method", "X", "", "HTTP method (default GET)")
	requestCmd.Flags().StringToString("param", nil, "query parameter (repeatable, key=value)")
	requestCmd.Flags().StringToString("header", nil, "request header (repeatable, key=value)")
	requestCmd.Flags().String("body", "", "request body")
	requestCmd.Flags().Int("priority", 0, "scheduling priority (higher runs first)")
	requestCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	requestCmd.Flags().Duration("cache-ttl", 0, "cache TTL for this response (default 5m)")
	requestCmd.Flags().Int("max-retries", 0, "max retries (default 3, -1 disables)")
	requestCmd.Flags().Duration("retry-delay", 0, "base retry delay (default 1s)")
	requestCmd.Flags().StringP("output", "o", "table", "output format: table, json")
}

func runRequest(cmd *cobra.Command, args []string) error {
	service, endpoint := args[0], args[1]

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	opts, err := requestOptions(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireServices(cfg); err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close() // nolint:errcheck // best-effort cleanup
	}

	orchestrator := buildOrchestrator(cfg, db, cliLogger)

	resp, err := orchestrator.Request(ctx, service, endpoint, opts)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", service, endpoint, err)
	}

	rendered, err := output.RenderResponse(format, resp)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Println(rendered)
	}
	return nil
}

func requestOptions(cmd *cobra.Command) (core.Options, error) {
	method, err := cmd.Flags().GetString("method")
	if err != nil {
		return core.Options{}, err
	}
	params, err := cmd.Flags().GetStringToString("param")
	if err != nil {
		return core.Options{}, err
	}
	headers, err := cmd.Flags().GetStringToString("header")
	if err != nil {
		return core.Options{}, err
	}
	body, err := cmd.Flags().GetString("body")
	if err != nil {
		return core.Options{}, err
	}
	priority, err := cmd.Flags().GetInt("priority")
	if err != nil {
		return core.Options{}, err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return core.Options{}, err
	}
	cacheTTL, err := cmd.Flags().GetDuration("cache-ttl")
	if err != nil {
		return core.Options{}, err
	}
	maxRetries, err := cmd.Flags().GetInt("max-retries")
	if err != nil {
		return core.Options{}, err
	}
	retryDelay, err := cmd.Flags().GetDuration("retry-delay")
	if err != nil {
		return core.Options{}, err
	}

	var bodyBytes []byte
	if body != "" {
		bodyBytes = []byte(body)
	}

	return core.Options{
		Method:         method,
		Params:         params,
		Headers:        headers,
		Body:           bodyBytes,
		Priority:       priority,
		NoCache:        noCache,
		CacheTTL:       cacheTTL,
		MaxRetries:     maxRetries,
		RetryBaseDelay: retryDelay,
	}, nil
}
