package main

import (
	"context"
	"fmt"

	"archon-backend/internal/config"
	"archon-backend/internal/infrastructure/db"
	"archon-backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "archon",
	Short: "Archon trading dashboard backend",
	Long: `Archon serves the trading bot dashboard and its data API.

It provides:
  - The landing page and the live dashboard
  - A REST API over profiles, bots, trades and daily performance
  - A websocket feed of trade and bot changes
  - Push and Telegram alerts for closed trades and failing bots`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yml")
}

// runtime is what every subcommand needs before doing its own work. pool is
// nil with the memory storage.
type runtime struct {
	cfg  config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func (r *runtime) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
	_ = r.log.Sync()
}

func bootstrap(ctx context.Context, opts ...config.Option) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on exit")
		return &runtime{cfg: cfg, log: log}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		log.Error("database connection failed", zap.Error(err))
		return nil, err
	}

	return &runtime{cfg: cfg, log: log, pool: pool}, nil
}
