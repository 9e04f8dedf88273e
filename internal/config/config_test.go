package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.Set("server.host", "127.0.0.1")
	v.Set("server.port", 8081)
	v.Set("cache.max_entries", 200)
	v.Set("cache.default_ttl", "5m")
	v.Set("services.market-data.base_url", "https://md.example.com")
	v.Set("services.market-data.max_requests", 30)
	v.Set("services.market-data.window", "1m")

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, 200, cfg.Cache.MaxEntries)
	require.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)

	svc, ok := cfg.Services["market-data"]
	require.True(t, ok)
	require.Equal(t, "https://md.example.com", svc.BaseURL)
	require.Equal(t, 30, svc.MaxRequests)
	require.Equal(t, time.Minute, svc.Window)

	// Store path falls back to a usable default.
	require.NotEmpty(t, cfg.Store.Path)
}

func TestLoadRejectsServiceWithoutBaseURL(t *testing.T) {
	v := viper.New()
	v.Set("services.llm.max_requests", 10)

	_, err := Load(v)
	require.ErrorContains(t, err, "base_url is required")
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	cfg := &Config{
		Services: map[string]ServiceConfig{
			"llm": {BaseURL: "https://llm.example.com", MaxRequests: -1},
		},
	}
	require.ErrorContains(t, cfg.Validate(), "max_requests")

	cfg = &Config{Cache: CacheConfig{MaxEntries: -5}}
	require.ErrorContains(t, cfg.Validate(), "max_entries")
}
