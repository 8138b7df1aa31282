package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/flicky/storefront-api/internal/config"
	"github.com/flicky/storefront-api/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := newLogger()
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		pool, err := openPostgres(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := repository.Migrate(cmd.Context(), pool)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "files", applied)
		return nil
	},
}

func openPostgres(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
