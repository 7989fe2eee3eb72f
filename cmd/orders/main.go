package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
)

var Version = "dev"

func main() {
	logger := logging.NewLogger("bakery-orders")

	if err := newRootCmd().Execute(); err != nil {
		logCommandError(logger, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "orders",
		Short:         "Bakery order-taking service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

// logCommandError reports a failed command, including startup failures such as
// a missing or unreachable store.
func logCommandError(logger *logging.Logger, err error) {
	logger.Error("Command failed", logging.Fields{"error": err.Error()})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// openStore connects to the configured store and ensures its indexes exist.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Store, error) {
	store, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	logger.Info("Store connected", logging.Fields{
		"driver":   store.Driver(),
		"database": cfg.Store.Database,
	})
	return store, nil
}
