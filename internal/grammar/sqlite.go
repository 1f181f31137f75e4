package grammar

import (
	"github.com/coregx/eloq/internal/query"
)

// SQLite is the generic/SQLite grammar: double-quoted identifiers,
// positional ? placeholders, no native booleans, no RIGHT JOIN.
type SQLite struct{}

func init() {
	Register("sqlite", &SQLite{})
	Register("sqlite3", &SQLite{})
}

// Name returns the dialect name.
func (g *SQLite) Name() string { return "sqlite" }

// Wrap quotes an identifier using double quotes.
func (g *SQLite) Wrap(identifier string) string {
	return wrapWith(`"`, identifier)
}

// Placeholder returns the positional placeholder token.
func (g *SQLite) Placeholder(_ int) string { return "?" }

// SupportsReturning reports that SQLite inserts need a last-insert-id
// round-trip.
func (g *SQLite) SupportsReturning() bool { return false }

// SupportsJoinKind rejects RIGHT JOIN, which older SQLite versions lack.
func (g *SQLite) SupportsJoinKind(k query.JoinKind) bool {
	return k != query.JoinRight
}

// PrepareBindings coerces booleans to 0/1 and date/time values to the
// canonical string form.
func (g *SQLite) PrepareBindings(values []interface{}) []interface{} {
	return prepareNoNativeBool(values)
}

// Literal renders a debug literal; booleans render as 1/0.
func (g *SQLite) Literal(value interface{}) string {
	return literal(value, "1", "0")
}

// CompileSelect lowers a snapshot to a SELECT statement.
func (g *SQLite) CompileSelect(q *query.Query) (string, []interface{}, error) {
	return compileSelect(g, q)
}

// CompileInsert builds an INSERT statement.
func (g *SQLite) CompileInsert(table string, values map[string]interface{}) (string, []interface{}, error) {
	return compileInsert(g, table, values)
}

// CompileInsertReturning fails: SQLite inserts report the generated key via
// last-insert-id, not RETURNING.
func (g *SQLite) CompileInsertReturning(_ string, _ map[string]interface{}, _ string) (string, []interface{}, error) {
	return "", nil, &CompilationError{Grammar: g.Name(), Construct: "INSERT ... RETURNING"}
}

// CompileUpdate builds an UPDATE statement.
func (g *SQLite) CompileUpdate(table string, values map[string]interface{}, wheres []query.Where) (string, []interface{}, error) {
	return compileUpdate(g, table, values, wheres)
}

// CompileDelete builds a DELETE statement.
func (g *SQLite) CompileDelete(table string, wheres []query.Where) (string, []interface{}, error) {
	return compileDelete(g, table, wheres)
}

// CompileCreateTable builds a CREATE TABLE from raw column definitions.
func (g *SQLite) CompileCreateTable(table string, columns []string) (string, error) {
	return compileCreateTable(g, table, columns)
}
