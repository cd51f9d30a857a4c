package main

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "concerto/internal/log"
	"concerto/internal/repos"
)

var forceFlag bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Database schema commands",
}

var schemaUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Bring the database schema up to date",
	Long: `Update lists the schema migrations not yet applied to the configured
database. With --force they are applied.`,
	RunE: runSchemaUpdate,
}

func init() {
	schemaUpdateCmd.Flags().BoolVar(&forceFlag, "force", false, "apply pending migrations")
	schemaCmd.AddCommand(schemaUpdateCmd)
}

func runSchemaUpdate(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := repos.NewMigrator(db).Update(cmd.Context(), forceFlag)
	if err != nil {
		applog.Error("schema.update", err, nil)
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range res.Applied {
		applog.Audit("schema.applied", map[string]any{"migration": m})
		fmt.Fprintf(out, "applied %s\n", m)
	}
	for _, m := range res.Pending {
		fmt.Fprintf(out, "pending %s\n", m)
	}
	switch {
	case len(res.Pending) > 0:
		fmt.Fprintln(out, "run with --force to apply")
	case len(res.Applied) == 0:
		fmt.Fprintln(out, "nothing to update, database schema is in sync")
	}
	return nil
}
