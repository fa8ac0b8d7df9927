package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/turtacn/itemsvc/internal/config"
	"github.com/turtacn/itemsvc/internal/infrastructure/monitoring"
	"github.com/turtacn/itemsvc/internal/infrastructure/persistence/postgres"
	httpapi "github.com/turtacn/itemsvc/internal/interfaces/http"
	"github.com/turtacn/itemsvc/migrations"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/logger"
)

var configFile string

// rootCmd starts the HTTP service when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           constants.ServiceName,
	Short:         "Item lookup service with per-route request metrics",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

// migrateCmd 应用内置的数据库迁移脚本
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd.Context())
	},
}

// validateCmd loads and validates configuration without touching the network.
var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate configuration, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.LoadConfig(configFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (default: ./config.yaml or /etc/itemsvc/config.yaml)")
	rootCmd.AddCommand(migrateCmd, validateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the application logger.
func bootstrap() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, appLogger.WithFields(logger.Fields{"service": constants.ServiceName}), nil
}

func runServer(ctx context.Context) error {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(ctx, &cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize tracing", err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	// Initialize metrics
	registry, err := monitoring.NewRegistry(
		monitoring.WithBuckets(cfg.Metrics.Buckets),
		monitoring.WithRuntimeCollectors(cfg.Metrics.RuntimeCollectors),
		monitoring.WithLogger(appLogger),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to create metric registry", err)
		return err
	}

	// Initialize database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to database", err)
		return err
	}
	defer db.Close()

	router := httpapi.NewRouter(httpapi.RouterDependencies{
		Config:   cfg,
		Logger:   appLogger,
		Metrics:  registry,
		Tracer:   tracing.Tracer(),
		Items:    postgres.NewItemRepository(db, tracing.Tracer(), appLogger),
		Database: db,
	})

	if err := router.Start(ctx); err != nil {
		appLogger.Error(ctx, "HTTP server failed", err)
		return err
	}
	return nil
}

func runMigrations(ctx context.Context) error {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.ApplyMigrations(ctx, migrations.FS)
	if err != nil {
		return err
	}
	appLogger.Info(ctx, "Migrations complete", logger.Fields{"applied": applied})
	return nil
}
