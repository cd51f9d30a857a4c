package main

import (
	"github.com/spf13/cobra"

	applog "concerto/internal/log"
	"concerto/internal/setup"
)

var (
	checkFlag          bool
	starterContentFlag bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Sets up Concerto",
	Long: `Setup prepares a Concerto installation: optional host checks, database
schema update, baseline roles and the default "admin" account, and optional
starter content import.

Setup is safe to re-run; records that already exist are left untouched.
It exits non-zero on the first failing step.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVar(&checkFlag, "check", false, "perform system checks")
	setupCmd.Flags().BoolVar(&starterContentFlag, "starter-content", false, "import starter content")
}

func runSetup(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := setup.New(cfg, db, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	_, err = s.Run(cmd.Context(), setup.Options{
		Env:            cfg.Env,
		Check:          checkFlag,
		StarterContent: starterContentFlag,
	})
	if err != nil {
		applog.Error("setup.failed", err, nil)
		return err
	}
	return nil
}
