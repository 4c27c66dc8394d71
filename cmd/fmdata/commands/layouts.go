package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmclient"
)

// NewLayoutsCommand creates the layouts command group.
func NewLayoutsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "layouts",
		Aliases: []string{"layout"},
		Short:   "Inspect layouts",
		Long:    "List the layouts of a database",
	}

	cmd.AddCommand(newLayoutsListCommand())

	return cmd
}

func newLayoutsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list [DATABASE]",
		Aliases: []string{"ls"},
		Short:   "List layouts",
		Long:    "List the layouts of DATABASE, or of the configured database",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()

			database := settings.Database
			if len(args) == 1 {
				database = args[0]
			}

			if database == "" {
				return constants.ErrNoDatabase
			}

			config, err := settings.clientConfig()
			if err != nil {
				return err
			}

			layouts, err := fmclient.ListLayoutDetails(cmd.Context(), config, database)
			if err != nil {
				return fmt.Errorf("failed to list layouts: %w", err)
			}

			return render(cmd.OutOrStdout(), settings.Output, layouts, func(table *tablewriter.Table) {
				table.Header("Layout", "Folder")

				for _, layout := range layouts {
					_ = table.Append(layout.Name, strconv.FormatBool(layout.IsFolder))
				}
			})
		},
	}
}
