package main

import (
	"fmt"
	"os"
	"taskboard/internal/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Taskboard - сервис задач поверх одного JSON-блоба",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// без подкоманды запускаем сервер
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "путь к YAML-конфигу")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backupCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}
	return cfg, nil
}
