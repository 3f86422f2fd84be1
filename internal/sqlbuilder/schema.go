package sqlbuilder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/yardhoppers/internal/domain"
)

// Schema is the declared set of fields of one table.
type Schema struct {
	table   string
	columns Columns
}

// NewSchema validates the mapping and returns a Schema for table.
func NewSchema(table string, columns Columns) (*Schema, error) {
	if table == "" {
		return nil, errors.New("schema: table name required")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema %s: no columns declared", table)
	}

	owners := make(map[string]string, len(columns))
	for field, col := range columns {
		if field == "" {
			return nil, fmt.Errorf("schema %s: empty field name", table)
		}
		if col.Name == "" {
			return nil, fmt.Errorf("schema %s: field %q has no column", table, field)
		}
		if col.Match != MatchExact && col.Match != MatchSubstring {
			return nil, fmt.Errorf("schema %s: field %q has unknown match mode %s", table, field, col.Match)
		}
		if other, ok := owners[col.Name]; ok {
			return nil, fmt.Errorf("schema %s: fields %q and %q both map to column %q", table, other, field, col.Name)
		}
		owners[col.Name] = field
	}

	copied := make(Columns, len(columns))
	for field, col := range columns {
		copied[field] = col
	}
	return &Schema{table: table, columns: copied}, nil
}

// MustSchema is like NewSchema but panics on an invalid mapping.
func MustSchema(table string, columns Columns) *Schema {
	s, err := NewSchema(table, columns)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Table() string {
	return s.table
}

// Column returns the column declared for field.
func (s *Schema) Column(field string) (Column, bool) {
	col, ok := s.columns[field]
	return col, ok
}

// Fields returns the declared field names in sorted order.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.columns))
	for name := range s.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PartialUpdate is BuildPartialUpdate restricted to declared, writable fields.
func (s *Schema) PartialUpdate(fields Fields) (Clause, error) {
	for field := range fields {
		col, ok := s.columns[field]
		if !ok {
			return Clause{}, s.unknown(field)
		}
		if col.ReadOnly {
			return Clause{}, domain.InvalidArgument("%s.%s cannot be updated", s.table, field)
		}
	}
	return BuildPartialUpdate(fields, s.columns)
}

// Filter is BuildFilterClause restricted to declared fields.
func (s *Schema) Filter(filters Fields) (Clause, error) {
	for field := range filters {
		if _, ok := s.columns[field]; !ok {
			return Clause{}, s.unknown(field)
		}
	}
	return BuildFilterClause(filters, s.columns)
}

func (s *Schema) unknown(field string) error {
	return domain.InvalidArgument("unknown field %q for %s (allowed: %s)", field, s.table, strings.Join(s.Fields(), ", "))
}
