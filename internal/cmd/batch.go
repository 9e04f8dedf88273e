package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Submit multiple requests from a file",
	Long: `Read a request list from a YAML or JSON file and fan the requests out
concurrently. Each request settles independently; one failure never affects
the others. Results are reported in file order.

File format (YAML shown; .json files use the equivalent JSON):

  requests:
    - service: market-data
      endpoint: /quote
      params:
        symbol: AAPL
    - service: llm
      endpoint: /complete
      method: POST
      body: '{"prompt":"hi"}'
      priority: 10`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "table", "output format: table, json")
}

// batchFile mirrors the HTTP facade's batch payload.
type batchFile struct {
	Requests []batchFileItem `json:"requests" yaml:"requests"`
}

type batchFileItem struct {
	Service        string            `json:"service" yaml:"service"`
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`
	Method         string            `json:"method" yaml:"method"`
	Params         map[string]string `json:"params" yaml:"params"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Body           string            `json:"body" yaml:"body"`
	Priority       int               `json:"priority" yaml:"priority"`
	NoCache        bool              `json:"no_cache" yaml:"no_cache"`
	CacheTTL       string            `json:"cache_ttl" yaml:"cache_ttl"`
	MaxRetries     int               `json:"max_retries" yaml:"max_retries"`
	RetryBaseDelay string            `json:"retry_base_delay" yaml:"retry_base_delay"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	items, err := readBatchFile(args[0])
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no requests found in batch file")
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

	results := orchestrator.BatchRequest(ctx, items)

	rendered, err := output.RenderBatch(format, items, results)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Println(rendered)
	}

	for _, res := range results {
		if res.Err != nil {
			return errors.New("one or more batch requests failed")
		}
	}
	return nil
}

// readBatchFile parses a batch file. JSON files are detected by extension;
// everything else is parsed as YAML.
func readBatchFile(path string) ([]core.BatchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var file batchFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse batch file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse batch file: %w", err)
		}
	}

	items := make([]core.BatchItem, 0, len(file.Requests))
	for i, item := range file.Requests {
		opts, err := item.options()
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		items = append(items, core.BatchItem{
			Service:  item.Service,
			Endpoint: item.Endpoint,
			Options:  opts,
		})
	}

	return items, nil
}

func (item batchFileItem) options() (core.Options, error) {
	opts := core.Options{
		Method:     item.Method,
		Params:     item.Params,
		Headers:    item.Headers,
		Priority:   item.Priority,
		NoCache:    item.NoCache,
		MaxRetries: item.MaxRetries,
	}
	if item.Body != "" {
		opts.Body = []byte(item.Body)
	}

	if item.CacheTTL != "" {
		d, err := time.ParseDuration(item.CacheTTL)
		if err != nil {
			return core.Options{}, fmt.Errorf("invalid cache_ttl: %w", err)
		}
		opts.CacheTTL = d
	}
	if item.RetryBaseDelay != "" {
		d, err := time.ParseDuration(item.RetryBaseDelay)
		if err != nil {
			return core.Options{}, fmt.Errorf("invalid retry_base_delay: %w", err)
		}
		opts.RetryBaseDelay = d
	}

	return opts, nil
}
