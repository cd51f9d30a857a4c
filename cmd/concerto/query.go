package main

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "concerto/internal/log"
	"concerto/internal/repos"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Raw database access",
}

var querySQLCmd = &cobra.Command{
	Use:   "sql <SQL>",
	Short: "Execute SQL against the configured database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := repos.NewQueryExecutor(db).Exec(cmd.Context(), args[0])
		if err != nil {
			applog.Error("query.sql", err, nil)
			return err
		}
		applog.Audit("query.sql", map[string]any{"rows": n})
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows affected\n", n)
		return nil
	},
}

func init() {
	queryCmd.AddCommand(querySQLCmd)
}
