package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmclient"
)

// NewDatabasesCommand creates the databases command group.
func NewDatabasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "databases",
		Aliases: []string{"database", "db"},
		Short:   "Manage hosted databases",
		Long:    "List and delete databases hosted on the FileMaker server",
	}

	cmd.AddCommand(newDatabasesListCommand())
	cmd.AddCommand(newDatabasesDeleteCommand())

	return cmd
}

func newDatabasesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List databases",
		Long:    "List the databases visible to the configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()

			config, err := settings.clientConfig()
			if err != nil {
				return err
			}

			databases, err := fmclient.ListDatabases(cmd.Context(), config)
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}

			return renderNames(cmd.OutOrStdout(), settings.Output, "Database", databases)
		},
	}
}

func newDatabasesDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete DATABASE",
		Short: "Delete a database",
		Long:  "Delete a database from the FileMaker server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return constants.ErrDeleteNotConfirmed
			}

			settings := loadSettings()

			config, err := settings.clientConfig()
			if err != nil {
				return err
			}

			err = fmclient.DeleteDatabase(cmd.Context(), config, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete database: %w", err)
			}

			return render(cmd.OutOrStdout(), settings.Output, map[string]string{"deleted": args[0]}, func(table *tablewriter.Table) {
				table.Header("Deleted")
				_ = table.Append(args[0])
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}
