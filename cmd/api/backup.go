package main

import (
	"fmt"
	"taskboard/internal/app"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Один раз снять копию коллекции в tasks.backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := app.New(cfg).Init(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Shutdown()

			count, err := a.Service().Backup(cmd.Context())
			if err != nil {
				return fmt.Errorf("снимок коллекции: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "снимок сохранён: %d задач\n", count)
			return nil
		},
	}
}
