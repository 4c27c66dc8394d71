package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage records",
		Long:    "Read, create, update and delete records of the configured layout",
	}

	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsCountCommand())
	cmd.AddCommand(newRecordsAddCommand())
	cmd.AddCommand(newRecordsUpdateCommand())
	cmd.AddCommand(newRecordsDeleteCommand())
	cmd.AddCommand(newRecordsClearCommand())
	cmd.AddCommand(newRecordsFieldsCommand())
	cmd.AddCommand(newRecordsImportCommand())

	return cmd
}

func parseRecordID(value string) (int, error) {
	recordID, err := strconv.Atoi(value)
	if err != nil || recordID <= 0 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidRecordID, value)
	}

	return recordID, nil
}

// parseFields merges name=value pairs and a JSON object into field data.
// Pairs win over JSON keys of the same name.
func parseFields(pairs []string, jsonFields string) (fmdata.FieldData, error) {
	fields := fmdata.FieldData{}

	if jsonFields != "" {
		err := json.Unmarshal([]byte(jsonFields), &fields)
		if err != nil {
			return nil, fmt.Errorf("parsing --json: %w", err)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidFieldFormat, pair)
		}

		fields[name] = value
	}

	if len(fields) == 0 {
		return nil, constants.ErrNoFieldsSpecified
	}

	return fields, nil
}

func newRecordsListCommand() *cobra.Command {
	var (
		offset int
		limit  int
		all    bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List records",
		Long:    "List a page of records, or every record with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				var (
					records []fmdata.Record
					err     error
				)

				if all {
					records, err = client.GetAllRecords(cmd.Context())
				} else {
					records, err = client.GetRecords(cmd.Context(), offset, limit)
				}

				if err != nil {
					return fmt.Errorf("failed to list records: %w", err)
				}

				return renderRecords(cmd.OutOrStdout(), settings.Output, records)
			})
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 1, "first record to return (1-based)")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "maximum number of records")
	cmd.Flags().BoolVar(&all, "all", false, "return every record")

	return cmd
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get a record",
		Long:  "Display one record by its record ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				record, err := client.GetRecordByID(cmd.Context(), recordID)
				if err != nil {
					return fmt.Errorf("failed to get record: %w", err)
				}

				return renderRecords(cmd.OutOrStdout(), settings.Output, []fmdata.Record{*record})
			})
		},
	}
}

func newRecordsCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count records",
		Long:  "Display the total number of records in the layout's table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				count, err := client.GetRecordCount(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to count records: %w", err)
				}

				return render(cmd.OutOrStdout(), settings.Output, map[string]int{"count": count}, func(table *tablewriter.Table) {
					table.Header("Layout", "Records")
					_ = table.Append(settings.Layout, strconv.Itoa(count))
				})
			})
		},
	}
}

func newRecordsAddCommand() *cobra.Command {
	var (
		fieldPairs []string
		jsonFields string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Long:  "Create a record from --field name=value pairs and/or a --json object",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldPairs, jsonFields)
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				result, err := client.AddRecord(cmd.Context(), fields)
				if err != nil {
					return fmt.Errorf("failed to add record: %w", err)
				}

				if !result.Success {
					return fmt.Errorf("failed to add record: %w", fmdata.ErrMissingRecordID)
				}

				return renderRecords(cmd.OutOrStdout(), settings.Output, []fmdata.Record{*result.Record})
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldPairs, "field", "f", nil, "field value as name=value (repeatable)")
	cmd.Flags().StringVar(&jsonFields, "json", "", "field data as a JSON object")

	return cmd
}

func newRecordsUpdateCommand() *cobra.Command {
	var (
		fieldPairs []string
		jsonFields string
	)

	cmd := &cobra.Command{
		Use:   "update RECORD_ID",
		Short: "Update a record",
		Long:  "Change fields of a record; fields not given are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			fields, err := parseFields(fieldPairs, jsonFields)
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				envelope, err := client.UpdateRecord(cmd.Context(), recordID, fields)
				if err != nil {
					return fmt.Errorf("failed to update record: %w", err)
				}

				return render(cmd.OutOrStdout(), settings.Output, envelope, func(table *tablewriter.Table) {
					table.Header("Record ID", "Code", "Message")

					for _, message := range envelope.Messages {
						_ = table.Append(args[0], message.Code, message.Message)
					}
				})
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldPairs, "field", "f", nil, "field value as name=value (repeatable)")
	cmd.Flags().StringVar(&jsonFields, "json", "", "field data as a JSON object")

	return cmd
}

func newRecordsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RECORD_ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				err := client.DeleteRecord(cmd.Context(), recordID)
				if err != nil {
					return fmt.Errorf("failed to delete record: %w", err)
				}

				return render(cmd.OutOrStdout(), settings.Output, map[string]int{"deleted": recordID}, func(table *tablewriter.Table) {
					table.Header("Deleted")
					_ = table.Append(args[0])
				})
			})
		},
	}
}

func newRecordsClearCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record",
		Long:  "Delete every record of the layout one at a time, stopping at the first failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return constants.ErrClearNotConfirmed
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				err := client.ClearRecords(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to clear records: %w", err)
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "clear without confirmation")

	return cmd
}

func newRecordsFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List field names",
		Long:  "List the field names of the layout, taken from its first record; global (g_) fields are skipped",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				names, err := client.GetFieldNames(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get field names: %w", err)
				}

				return renderNames(cmd.OutOrStdout(), settings.Output, "Field", names)
			})
		},
	}
}
