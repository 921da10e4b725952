package main

import (
	"context"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/deppfellow/go-catalog/internal/database"
	"github.com/deppfellow/go-catalog/internal/logger"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context())
		},
	}
}

func migrate(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Observability)

	db, err := database.New(cfg, &log, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.Migrate(ctx, &log, cfg, db)
}
