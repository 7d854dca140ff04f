package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/logger"
)

var (
	flagJSONLogs bool
	flagDebug    bool
	flagDataDir  string
	flagConfig   string
	flagEnvFile  string
)

var rootCmd = &cobra.Command{
	Use:   "jobreview",
	Short: "Job posting ingestion and review engine",
	Long: `jobreview merges job postings from several boards into one CSV dataset
and serves a local review API on top of it.

Examples:
  jobreview serve            # review server (optionally with the daily scheduler)
  jobreview daily            # once-per-day ingestion, for cron
  jobreview ingest --force   # ingest now, ignoring the daily marker
  jobreview backup           # session snapshot of the dataset`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(flagEnvFile); err != nil {
			return fmt.Errorf("load %s: %w", flagEnvFile, err)
		}
		if err := logger.Initialize(flagJSONLogs, flagDebug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default $"+config.EnvDataDir+" or ./data)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $"+config.EnvConfig+" or <data-dir>/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Optional .env file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(secretCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
