package main

import (
	"errors"
	"fmt"
	"taskboard/internal/logger"
	"taskboard/internal/repository/task/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Применить или откатить миграции PostgreSQL",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url не задан")
			}
			if err := logger.Init(cfg.Logging.Development); err != nil {
				return fmt.Errorf("инициализация логгера: %w", err)
			}
			defer logger.Sync()

			if args[0] == "down" {
				if err := postgres.Down(cfg.Database.URL); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "миграции откачены")
				return nil
			}

			if err := postgres.Migrate(cfg.Database.URL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "миграции применены")
			return nil
		},
	}
}
