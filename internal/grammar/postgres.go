package grammar

import (
	"fmt"

	"github.com/coregx/eloq/internal/query"
)

// Postgres is the PostgreSQL grammar: double-quoted identifiers, numbered
// $n placeholders, native booleans, RETURNING on insert.
//
// The grammar owns numbered-placeholder emission directly: the counter lives
// in the per-compile state and spans the whole statement, so the adapter
// never needs to translate positional placeholders downstream.
type Postgres struct{}

func init() {
	Register("postgres", &Postgres{})
	Register("postgresql", &Postgres{})
	Register("pgx", &Postgres{})
}

// Name returns the dialect name.
func (g *Postgres) Name() string { return "postgres" }

// Wrap quotes an identifier using double quotes.
func (g *Postgres) Wrap(identifier string) string {
	return wrapWith(`"`, identifier)
}

// Placeholder returns the numbered placeholder for the n-th bound value.
func (g *Postgres) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// SupportsReturning reports that inserts can yield the generated key via
// RETURNING.
func (g *Postgres) SupportsReturning() bool { return true }

// PrepareBindings passes booleans through (native boolean type) and coerces
// date/time values to the canonical string form.
func (g *Postgres) PrepareBindings(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = prepareCommon(v)
	}
	return out
}

// Literal renders a debug literal; booleans render as TRUE/FALSE.
func (g *Postgres) Literal(value interface{}) string {
	return literal(value, "TRUE", "FALSE")
}

// CompileSelect lowers a snapshot to a SELECT statement.
func (g *Postgres) CompileSelect(q *query.Query) (string, []interface{}, error) {
	return compileSelect(g, q)
}

// CompileInsert builds an INSERT statement.
func (g *Postgres) CompileInsert(table string, values map[string]interface{}) (string, []interface{}, error) {
	return compileInsert(g, table, values)
}

// CompileInsertReturning builds an INSERT ... RETURNING <pk> so the generated
// key comes back in the result rows without a second round-trip.
func (g *Postgres) CompileInsertReturning(table string, values map[string]interface{}, pk string) (string, []interface{}, error) {
	sql, args, err := compileInsert(g, table, values)
	if err != nil {
		return "", nil, err
	}
	return sql + " RETURNING " + g.Wrap(pk), args, nil
}

// CompileUpdate builds an UPDATE statement.
func (g *Postgres) CompileUpdate(table string, values map[string]interface{}, wheres []query.Where) (string, []interface{}, error) {
	return compileUpdate(g, table, values, wheres)
}

// CompileDelete builds a DELETE statement.
func (g *Postgres) CompileDelete(table string, wheres []query.Where) (string, []interface{}, error) {
	return compileDelete(g, table, wheres)
}

// CompileCreateTable builds a CREATE TABLE from raw column definitions.
func (g *Postgres) CompileCreateTable(table string, columns []string) (string, error) {
	return compileCreateTable(g, table, columns)
}
