/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the points ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, TOML file, environment, flags)
  2. Initialize logging
  3. Open the journal (memory or SQLite)
  4. Connect the balance cache (Redis, optional)
  5. Configure HTTP router
  6. Start the periodic ledger verifier
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  --config  TOML configuration file
  --addr    HTTP listen address (overrides config)
  --db      SQLite journal path; selects the sqlite driver

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close cache and journal
  4. Exit

EXAMPLES:
  # In-memory journal on :5000
  pointsd

  # SQLite journal and Redis mirror
  REDIS_ADDR=localhost:6379 pointsd --db ./data/points.db

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/points-ledger/api"
	"github.com/warp/points-ledger/cache"
	"github.com/warp/points-ledger/config"
	"github.com/warp/points-ledger/logging"
	"github.com/warp/points-ledger/points"
	"github.com/warp/points-ledger/points/store"
	"github.com/warp/points-ledger/store/sqlite"
)

var (
	configPath string
	addrFlag   string
	dbFlag     string
)

var rootCmd = &cobra.Command{
	Use:           "pointsd",
	Short:         "Reward points ledger server",
	Long:          "Tracks reward points per payer and spends them oldest-first across payers.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addrFlag != "" {
			cfg.Server.Addr = addrFlag
		}
		if dbFlag != "" {
			cfg.Store.Driver = config.DriverSQLite
			cfg.Store.Path = dbFlag
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address")
	rootCmd.Flags().StringVar(&dbFlag, "db", "", "SQLite journal path")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := logging.Init(cfg.Log)

	journal, closeJournal, err := openJournal(cfg.Store)
	if err != nil {
		return err
	}
	defer closeJournal()

	balanceCache, closeCache, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	handler := api.NewHandler(journal, balanceCache, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        cfg.Metrics,
	})

	verifier := api.NewVerificationScheduler(handler, cfg.VerifyInterval)
	verifier.Start()
	defer verifier.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func openJournal(cfg config.StoreConfig) (points.Journal, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func openCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (cache.BalanceCache, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("balance cache disabled")
		return cache.Noop{}, func() {}, nil
	}

	c, err := cache.Dial(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect balance cache: %w", err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("balance cache connected")

	breaker := cache.NewBreaker(c, cache.BreakerConfig{
		ConsecutiveFailures: cfg.BreakerFailures,
		OpenTimeout:         cfg.BreakerTimeout,
	}, logger)
	return breaker, func() { c.Close() }, nil
}
