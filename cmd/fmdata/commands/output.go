package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// render writes data as JSON or YAML, or calls table for table output.
func render(w io.Writer, format string, data interface{}, table func(*tablewriter.Table)) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(data)
	case constants.FormatTable, "":
		writer := tablewriter.NewWriter(w)
		table(writer)

		err := writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

func row(values ...string) []interface{} {
	cells := make([]interface{}, 0, len(values))
	for _, value := range values {
		cells = append(cells, value)
	}

	return cells
}

// recordColumns returns the union of field names across records in sorted order.
func recordColumns(records []fmdata.Record) []string {
	seen := map[string]bool{}

	for _, record := range records {
		for name := range record.FieldData {
			seen[name] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}

	sort.Strings(columns)

	return columns
}

func cell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func renderRecords(w io.Writer, format string, records []fmdata.Record) error {
	return render(w, format, records, func(table *tablewriter.Table) {
		columns := recordColumns(records)

		table.Header(row(append([]string{"Record ID"}, columns...)...)...)

		for _, record := range records {
			values := []string{record.RecordID}
			for _, column := range columns {
				values = append(values, cell(record.FieldData[column]))
			}

			_ = table.Append(row(values...)...)
		}
	})
}

func renderNames(w io.Writer, format, header string, names []string) error {
	return render(w, format, names, func(table *tablewriter.Table) {
		table.Header(header)

		for _, name := range names {
			_ = table.Append(name)
		}
	})
}
