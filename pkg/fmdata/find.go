package fmdata

import (
	"sort"
	"strings"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// SortRule is one entry of the find request sort array.
type SortRule struct {
	FieldName string `json:"fieldName"`
	SortOrder string `json:"sortOrder"`
}

// FindRequest is the body of POST .../_find.
type FindRequest struct {
	Query []map[string]interface{} `json:"query"`
	Sort  []SortRule               `json:"sort,omitempty"`
}

// BuildSortRules maps each field to a sort rule sharing one direction.
func BuildSortRules(fields []string, ascending bool) []SortRule {
	order := constants.SortDescend
	if ascending {
		order = constants.SortAscend
	}

	rules := make([]SortRule, 0, len(fields))
	for _, field := range fields {
		rules = append(rules, SortRule{FieldName: field, SortOrder: order})
	}

	return rules
}

// NewFindRequest builds a find body from string-valued request objects.
func NewFindRequest(query []map[string]string, sortFields []string, ascending bool) *FindRequest {
	objects := make([]map[string]interface{}, 0, len(query))

	for _, criteria := range query {
		object := make(map[string]interface{}, len(criteria))
		for field, value := range criteria {
			object[field] = value
		}

		objects = append(objects, object)
	}

	return &FindRequest{
		Query: objects,
		Sort:  BuildSortRules(sortFields, ascending),
	}
}

// NewAdvancedFindRequest builds one single-field request object per entry of
// fields, ordered by field name. FileMaker ORs separate request objects.
func NewAdvancedFindRequest(fields map[string]interface{}, sortFields []string, ascending bool) *FindRequest {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	sort.Strings(names)

	objects := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		objects = append(objects, map[string]interface{}{name: fields[name]})
	}

	request := &FindRequest{Query: objects}
	if len(sortFields) > 0 {
		request.Sort = BuildSortRules(sortFields, ascending)
	}

	return request
}

// FieldNamesByExample returns the sorted field names of record, skipping
// global fields.
func FieldNamesByExample(record *Record) []string {
	if record == nil {
		return []string{}
	}

	names := make([]string, 0, len(record.FieldData))

	for name := range record.FieldData {
		if strings.HasPrefix(name, constants.GlobalFieldPrefix) {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
