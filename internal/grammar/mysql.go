package grammar

import (
	"github.com/coregx/eloq/internal/query"
)

// MySQL is the MySQL grammar: backtick-quoted identifiers, positional ?
// placeholders, booleans stored as 0/1.
type MySQL struct{}

func init() {
	Register("mysql", &MySQL{})
}

// Name returns the dialect name.
func (g *MySQL) Name() string { return "mysql" }

// Wrap quotes an identifier using backticks.
func (g *MySQL) Wrap(identifier string) string {
	return wrapWith("`", identifier)
}

// Placeholder returns the positional placeholder token.
func (g *MySQL) Placeholder(_ int) string { return "?" }

// SupportsReturning reports that MySQL inserts need a last-insert-id
// round-trip.
func (g *MySQL) SupportsReturning() bool { return false }

// PrepareBindings coerces booleans to 0/1 and date/time values to the
// canonical string form.
func (g *MySQL) PrepareBindings(values []interface{}) []interface{} {
	return prepareNoNativeBool(values)
}

// Literal renders a debug literal; booleans render as 1/0.
func (g *MySQL) Literal(value interface{}) string {
	return literal(value, "1", "0")
}

// CompileSelect lowers a snapshot to a SELECT statement.
func (g *MySQL) CompileSelect(q *query.Query) (string, []interface{}, error) {
	return compileSelect(g, q)
}

// CompileInsert builds an INSERT statement.
func (g *MySQL) CompileInsert(table string, values map[string]interface{}) (string, []interface{}, error) {
	return compileInsert(g, table, values)
}

// CompileInsertReturning fails: MySQL reports the generated key via
// last-insert-id, not RETURNING.
func (g *MySQL) CompileInsertReturning(_ string, _ map[string]interface{}, _ string) (string, []interface{}, error) {
	return "", nil, &CompilationError{Grammar: g.Name(), Construct: "INSERT ... RETURNING"}
}

// CompileUpdate builds an UPDATE statement.
func (g *MySQL) CompileUpdate(table string, values map[string]interface{}, wheres []query.Where) (string, []interface{}, error) {
	return compileUpdate(g, table, values, wheres)
}

// CompileDelete builds a DELETE statement.
func (g *MySQL) CompileDelete(table string, wheres []query.Where) (string, []interface{}, error) {
	return compileDelete(g, table, wheres)
}

// CompileCreateTable builds a CREATE TABLE from raw column definitions.
func (g *MySQL) CompileCreateTable(table string, columns []string) (string, error) {
	return compileCreateTable(g, table, columns)
}
