// Command enrollctl runs maintenance tasks against the enrollment database: migrations,
// demo data, batch reconciliation and price table checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dance-ops/internal/config"
	"dance-ops/internal/db"
	"dance-ops/internal/metrics"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	priceTablePath string
)

var rootCmd = &cobra.Command{
	Use:           "enrollctl",
	Short:         "Maintenance commands for dance-ops",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if priceTablePath != "" {
			cfg.PriceTablePath = priceTablePath
		}
		var err error
		logger, err = cfg.NewLogger()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&priceTablePath, "prices", "", "price table YAML (defaults to PRICE_TABLE_PATH or the built-in table)")

	rootCmd.AddCommand(migrateCmd, seedCmd, reconcileCmd, checkCmd, pricesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// MIGRATE
// =============================================================================

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.RunMigrations(ctx, conn, logger)
	},
}

// openService connects, applies migrations and builds the reconcile service.
func openService(ctx context.Context) (*models.Repository, *reconcile.Service, error) {
	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, conn, logger); err != nil {
		return nil, nil, err
	}

	prices, err := loadPrices(cfg.PriceTablePath)
	if err != nil {
		return nil, nil, err
	}
	repo := models.NewRepository(conn)
	return repo, reconcile.NewService(repo, prices, logger, metrics.New()), nil
}

func loadPrices(path string) (*pricing.Table, error) {
	prices, err := pricing.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price table: %w", err)
	}
	return prices, nil
}
