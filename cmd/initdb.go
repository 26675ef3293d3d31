package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// newInitDBCmd creates the 'initdb' subcommand, which creates the star
// schema tables in the configured Postgres database if they do not exist.
func newInitDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Creates the warehouse star schema",
		Long: `Connects to the configured Postgres database and creates the
dimension and fact tables used by the crawl, if they do not already
exist. Safe to run repeatedly.`,

		RunE: runInitDBCommand,
	}
	return cmd
}

func runInitDBCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	writer := appInstance.GetWriter()
	if writer == nil {
		return errors.New("initdb requires database.provider=postgres")
	}
	if err := writer.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	appInstance.GetLogger().Info("Warehouse schema is in place.")
	return nil
}
