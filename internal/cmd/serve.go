package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/observability"
	"github.com/quotaflow/quotaflow/internal/server"
	"github.com/quotaflow/quotaflow/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP facade",
	Long: `Start the HTTP facade with graceful shutdown support.

The facade exposes the orchestrator over HTTP: request submission, batch
submission, cache statistics, and per-service rate-limit state. SIGINT or
SIGTERM triggers a graceful shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireServices(cfg); err != nil {
		return err
	}

	logger, err := observability.NewServerLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint:errcheck // sync errors on stderr are benign

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close() // nolint:errcheck // best-effort cleanup
	}

	orchestrator := buildOrchestrator(cfg, db, logger)

	srv := server.New(cfg.Server, orchestrator, logger, handlers.VersionInfo{
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("quotaflow serving",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("services", len(cfg.Services)),
		zap.Bool("store", db != nil))

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped gracefully")
	return nil
}
