// Package cmd implements the quotaflow CLI.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/config"
	"github.com/quotaflow/quotaflow/internal/observability"
)

var (
	cfgFile string
	verbose bool

	cliLogger *zap.Logger

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quotaflow",
	Short: "Client-side orchestration for rate-limited service calls",
	Long: `QuotaFlow mediates outbound calls to rate-limited services: it enforces
per-service sliding-window quotas, caches responses, deduplicates identical
in-flight requests, and schedules queued work by priority.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/quotaflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	logger, err := observability.NewCLILogger(verbose)
	if err != nil {
		cobra.CheckErr(err)
	}
	cliLogger = logger

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(configDir, "quotaflow"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("quotaflow")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("QUOTAFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		cliLogger.Debug("using config file", zap.String("path", viper.ConfigFileUsed()))
	} else {
		// Missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			cliLogger.Warn("error reading config file", zap.Error(err))
		}
	}

	setDefaults()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.throttle_rps", 50)
	viper.SetDefault("server.throttle_burst", 100)

	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Store defaults
	viper.SetDefault("store.enabled", true)
	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", config.DefaultStorePath())
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	// Cache defaults
	viper.SetDefault("cache.max_entries", 500)
	viper.SetDefault("cache.default_ttl", "5m")
}
