package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/config"
	"github.com/quotaflow/quotaflow/internal/core/engine"
	"github.com/quotaflow/quotaflow/internal/core/store"
	"github.com/quotaflow/quotaflow/internal/transport"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// requireServices guards commands that submit requests.
func requireServices(cfg *config.Config) error {
	if len(cfg.Services) == 0 {
		return errors.New("no services configured; add a services block to the config file")
	}
	return nil
}

// openStore opens and migrates the persistent store, or returns nil when the
// store is disabled.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// buildOrchestrator assembles the engine from config. A nil store leaves the
// persistent cache tier and journal disabled.
func buildOrchestrator(cfg *config.Config, db *store.Store, logger *zap.Logger) *engine.Orchestrator {
	services := make(map[string]engine.Service, len(cfg.Services))
	for name, svc := range cfg.Services {
		services[name] = engine.Service{
			BaseURL: svc.BaseURL,
			Limit: engine.RateLimit{
				MaxRequests:    svc.MaxRequests,
				WindowDuration: svc.Window,
			},
		}
	}

	o := &engine.Orchestrator{
		Services: services,
		Transport: &transport.HTTPClient{
			UserAgent: "quotaflow/" + versionInfo.Version,
		},
		Cache:  &engine.Cache{Capacity: cfg.Cache.MaxEntries},
		Logger: logger,
	}

	if db != nil {
		o.Store = db
		o.Journal = db
	}

	return o
}
