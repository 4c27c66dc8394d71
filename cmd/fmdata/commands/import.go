package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// importRow is one line of the import report.
type importRow struct {
	Row      int    `json:"row"                yaml:"row"`
	RecordID string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Error    string `json:"error,omitempty"    yaml:"error,omitempty"`
}

// readImportFile reads a list of field data objects from a JSON or YAML file.
func readImportFile(path string) ([]fmdata.FieldData, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- file named on the command line
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	var records []fmdata.FieldData

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}

	if err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}

	if len(records) == 0 {
		return nil, constants.ErrEmptyImportFile
	}

	return records, nil
}

func importOperations(records []fmdata.FieldData) []fmdata.BatchOperation {
	operations := make([]fmdata.BatchOperation, 0, len(records))
	for i, fields := range records {
		operations = append(operations, fmdata.BatchOperation{
			ID:     strconv.Itoa(i + 1),
			Type:   fmdata.BatchCreate,
			Fields: fields,
		})
	}

	return operations
}

func importReport(results []fmdata.BatchResult) ([]importRow, int) {
	rows := make([]importRow, 0, len(results))
	failed := 0

	for _, result := range results {
		row, _ := strconv.Atoi(result.ID)
		line := importRow{Row: row}

		if result.Error != nil {
			line.Error = result.Error.Error()
			failed++
		} else if added, ok := result.Data.(*fmdata.AddRecordResult); ok && added.Record != nil {
			line.RecordID = added.Record.RecordID
		}

		rows = append(rows, line)
	}

	return rows, failed
}

func newRecordsImportCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import records from a file",
		Long: `Create one record per object in FILE, a JSON or YAML list of field data.
Records are created concurrently; a failed record does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readImportFile(args[0])
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				executor := fmdata.NewBatchExecutor(client, concurrency)

				results, err := executor.Execute(cmd.Context(), importOperations(records))
				if err != nil {
					return fmt.Errorf("failed to import records: %w", err)
				}

				rows, failed := importReport(results)

				err = render(cmd.OutOrStdout(), settings.Output, rows, func(table *tablewriter.Table) {
					table.Header("Row", "Record ID", "Error")

					for _, line := range rows {
						_ = table.Append(strconv.Itoa(line.Row), line.RecordID, line.Error)
					}
				})
				if err != nil {
					return err
				}

				if failed > 0 {
					return fmt.Errorf("%w: %d of %d failed", constants.ErrImportFailed, failed, len(rows))
				}

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", constants.DefaultConcurrencyLimit, "records created in parallel")

	return cmd
}
