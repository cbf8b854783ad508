package main

import (
	"errors"

	"archon-backend/internal/infrastructure/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables and change triggers",
	Long: `Migrate creates the profiles, trading_bots, trades and daily_performance
tables if they are missing and installs the triggers that publish row
changes on the realtime channel. It is safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		if rt.pool == nil {
			return errors.New("migrate needs postgres storage")
		}

		if err := db.Migrate(ctx, rt.pool, rt.cfg.Realtime.Channel); err != nil {
			rt.log.Error("migration failed", zap.Error(err))
			return err
		}
		rt.log.Info("migration complete", zap.String("channel", rt.cfg.Realtime.Channel))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
