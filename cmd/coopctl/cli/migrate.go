package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coopledger/coopledger/internal/platform/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the ledger schema",
	Long: `Apply the ledger schema to the configured database. Every statement is
idempotent, so the command is safe to run on each deploy.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("print", false, "Print the schema instead of applying it")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), db.Schema())
		return err
	}
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := db.Migrate(cmd.Context(), rt.pool); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return err
}
