package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/migrations"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/database"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/migration"
)

var (
	configYml string
	seed      bool
	sqlFiles  []string
	StartCmd  = &cobra.Command{
		Use:     "migrate",
		Short:   "Initialize the database",
		Example: "customer-gateway migrate -c config/settings.yml --seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	StartCmd.PersistentFlags().StringVarP(&configYml, "config", "c", "", "Start server with provided configuration file")
	StartCmd.PersistentFlags().BoolVar(&seed, "seed", false, "insert demo customers when the table is empty")
	StartCmd.PersistentFlags().StringSliceVar(&sqlFiles, "sql", nil, "extra sql files executed after migrations")
}

func run(ctx context.Context) error {
	if err := config.Setup(configYml); err != nil {
		return err
	}
	logger.Setup(config.LoggerConfig)
	log := logger.Logger

	db, err := database.Open(config.DatabaseConfig, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Close database failed", zap.Error(err))
		}
	}()
	if err := database.Ping(ctx, db); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	applied, err := migration.GetRegistry().Migrate(db, log)
	if err != nil {
		return err
	}
	log.Info("Database migrated", zap.Strings("applied", applied))

	if len(sqlFiles) > 0 {
		n, err := migration.ExecSQLFiles(db, sqlFiles...)
		if err != nil {
			return err
		}
		log.Info("SQL files executed", zap.Int("statements", n))
	}

	if seed {
		n, err := migrations.Seed(db)
		if err != nil {
			return err
		}
		log.Info("Demo customers seeded", zap.Int("inserted", n))
	}
	return nil
}
