// Package sqlbuilder turns sparse field/value maps into parameterized
// PostgreSQL fragments.
//
// BuildPartialUpdate renders the SET list of an UPDATE statement and
// BuildFilterClause renders a conjunctive ILIKE predicate for searches. Both
// return a Clause holding the SQL text and the positional arguments that go
// with it; values are always bound, never written into the SQL text.
//
// A Schema describes one table: every logical field it accepts, the physical
// column behind it and how the column is matched in searches. Repositories
// declare their schemas at package init with MustSchema so that a bad mapping
// fails at startup instead of producing SQL against the wrong column.
package sqlbuilder
