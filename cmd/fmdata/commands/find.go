package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// parseQuery turns "name=value,name=value" into one find request object.
func parseQuery(query string) (map[string]string, error) {
	criteria := map[string]string{}

	for _, pair := range strings.Split(query, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidFieldFormat, pair)
		}

		criteria[name] = value
	}

	return criteria, nil
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	var (
		queries    []string
		anyOf      []string
		sortFields []string
		descending bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find records",
		Long: `Find records of the configured layout.

Each --query is one find request; its name=value pairs must all match and
records matching any request are returned. Each --any pair is its own
request, so --any City=Paris --any Country=France finds records matching
either. A value like "Sm*" matches by prefix; "==Smith" matches exactly.`,
		Example: `  fmdata find --query "LastName=Smith,City=Paris" --sort FirstName
  fmdata find --any City=Paris --any Country=France --sort LastName --descending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(queries) == 0 && len(anyOf) == 0 {
				return constants.ErrNoQuerySpecified
			}

			requests := make([]map[string]string, 0, len(queries))
			for _, query := range queries {
				criteria, err := parseQuery(query)
				if err != nil {
					return err
				}

				requests = append(requests, criteria)
			}

			fields := map[string]interface{}{}
			for _, pair := range anyOf {
				criteria, err := parseQuery(pair)
				if err != nil {
					return err
				}

				for name, value := range criteria {
					fields[name] = value
				}
			}

			return withClient(cmd.Context(), func(client fmdata.Client, settings *Settings) error {
				var (
					records []fmdata.Record
					err     error
				)

				if len(requests) > 0 {
					records, err = client.Search(cmd.Context(), requests, sortFields, !descending)
				} else {
					records, err = client.AdvancedSearch(cmd.Context(), fields, sortFields, !descending)
				}

				if fmdata.IsNoRecordsMatch(err) {
					records, err = []fmdata.Record{}, nil
				}

				if err != nil {
					return fmt.Errorf("failed to find records: %w", err)
				}

				return renderRecords(cmd.OutOrStdout(), settings.Output, records)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "find request as name=value[,name=value] (repeatable)")
	cmd.Flags().StringArrayVar(&anyOf, "any", nil, "single-field request as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&sortFields, "sort", "s", nil, "sort field (repeatable, applied in order)")
	cmd.Flags().BoolVar(&descending, "descending", false, "sort descending")

	return cmd
}
