package sqlbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/yardhoppers/internal/domain"
)

// MatchMode controls how a column is compared in a filter clause.
type MatchMode int

const (
	// MatchExact compares the column case-insensitively against the whole value.
	MatchExact MatchMode = iota
	// MatchSubstring matches rows whose column contains the value, case-insensitively.
	MatchSubstring
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// Column describes the physical column behind a logical field.
type Column struct {
	Name     string    // physical column name
	Match    MatchMode // comparison used by filter clauses
	ReadOnly bool      // rejected by Schema.PartialUpdate
}

// Columns maps logical field names to columns.
type Columns map[string]Column

// Fields maps logical field names to values.
type Fields map[string]any

// Clause is a rendered SQL fragment and its positional arguments.
// Placeholders in SQL run from $1 to $len(Args).
type Clause struct {
	SQL  string
	Args []any
}

// Empty reports whether the clause renders nothing.
func (c Clause) Empty() bool {
	return c.SQL == ""
}

// Where renders "WHERE <clause>", or an empty string for an empty clause.
func (c Clause) Where() string {
	if c.Empty() {
		return ""
	}
	return "WHERE " + c.SQL
}

// Placeholders returns the number of positional parameters in the clause.
func (c Clause) Placeholders() int {
	return len(c.Args)
}

// Next returns the index of the first placeholder free after the clause,
// so callers can append trailing parameters such as a row key.
func (c Clause) Next() int {
	return len(c.Args) + 1
}

// Placeholder renders the PostgreSQL positional parameter for index (1-based).
func Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// QuoteIdent wraps name in double quotes, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeLike escapes the LIKE metacharacters of s using the default backslash escape.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// BuildPartialUpdate renders the SET list of an UPDATE statement.
//
// Each field becomes "column"=$n, fields are visited in sorted name order and
// Args follows the same order. Fields missing from columns use their own name
// as the column name. An empty fields map is an ErrInvalidArgument.
func BuildPartialUpdate(fields Fields, columns Columns) (Clause, error) {
	if len(fields) == 0 {
		return Clause{}, domain.InvalidArgument("no data to update")
	}

	names, err := sortedFields(fields)
	if err != nil {
		return Clause{}, err
	}

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, field := range names {
		col := lookup(columns, field)
		args = append(args, fields[field])
		sets = append(sets, fmt.Sprintf("%s=%s", QuoteIdent(col.Name), Placeholder(len(args))))
	}

	return Clause{SQL: strings.Join(sets, ", "), Args: args}, nil
}

// BuildFilterClause renders a search predicate joining one ILIKE comparison
// per filter with AND. An empty filters map yields an empty clause.
//
// Substring columns match values anywhere in the column; exact columns are
// cast to text and compared case-insensitively against the whole value.
// LIKE metacharacters in values are escaped so they match literally.
func BuildFilterClause(filters Fields, columns Columns) (Clause, error) {
	if len(filters) == 0 {
		return Clause{}, nil
	}

	names, err := sortedFields(filters)
	if err != nil {
		return Clause{}, err
	}

	preds := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, field := range names {
		col := lookup(columns, field)
		value := EscapeLike(fmt.Sprint(filters[field]))

		switch col.Match {
		case MatchSubstring:
			args = append(args, "%"+value+"%")
			preds = append(preds, fmt.Sprintf("%s ILIKE %s", QuoteIdent(col.Name), Placeholder(len(args))))
		case MatchExact:
			args = append(args, value)
			preds = append(preds, fmt.Sprintf("%s::text ILIKE %s", QuoteIdent(col.Name), Placeholder(len(args))))
		default:
			return Clause{}, domain.InvalidArgument("field %q has unknown match mode %s", field, col.Match)
		}
	}

	return Clause{SQL: strings.Join(preds, " AND "), Args: args}, nil
}

func lookup(columns Columns, field string) Column {
	if col, ok := columns[field]; ok {
		return col
	}
	return Column{Name: field, Match: MatchExact}
}

func sortedFields(fields Fields) ([]string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "" {
			return nil, domain.InvalidArgument("empty field name")
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
