package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"concerto/internal/config"
	applog "concerto/internal/log"
	"concerto/internal/repos"
)

var (
	cfgFile  string
	logLevel string
	envName  string

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "concerto",
	Short: "Concerto panel administration",
	Long: `Administrative commands for a Concerto panel installation:
first-time setup, schema updates and raw SQL execution.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "environment name (default from config, \"prod\")")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		// flags take precedence over the config file
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("env") {
			cfg.Env = envName
		}
		if err := applog.Init(cfg.Log.Level, cfg.Log.File); err != nil {
			return fmt.Errorf("initialising logger: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) { applog.Sync() }

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(queryCmd)
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		applog.Sync()
		os.Exit(1)
	}
}

func openDB() (*sqlx.DB, error) {
	db, err := repos.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		applog.Error("db.open", err, map[string]any{"driver": cfg.Database.Driver})
		return nil, err
	}
	return db, nil
}
