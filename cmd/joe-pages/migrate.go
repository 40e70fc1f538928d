package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/config"
	"github.com/joestump/joe-pages/internal/db"
	"github.com/joestump/joe-pages/internal/logging"
)

func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			database, err := db.New(ctx, cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(ctx, database, cfg.DB.Driver); err != nil {
				return err
			}
			version, err := db.Version(ctx, database, cfg.DB.Driver)
			if err != nil {
				return err
			}

			logger.Info("migrations complete", zap.String("driver", cfg.DB.Driver), zap.Int64("version", version))
			return nil
		},
	}
}
