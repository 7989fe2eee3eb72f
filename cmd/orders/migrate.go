package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create store indexes and tables, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := logging.NewLogger("migrate")

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.ConnectTimeout*3)
			defer cancel()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("Migration complete", logging.Fields{"driver": store.Driver()})
			return store.Close(context.Background())
		},
	}
}
