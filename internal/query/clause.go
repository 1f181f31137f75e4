// Package query defines the database-agnostic clause model: value types
// describing WHERE/HAVING/JOIN/ORDER/GROUP/UNION fragments and the immutable
// Query snapshot consumed by grammars. The package holds pure data only; the
// fluent builder lives in internal/core and the SQL compilers in
// internal/grammar.
package query

// BoolOp is the boolean connector between adjacent clauses.
type BoolOp string

// Boolean connectors.
const (
	BoolAnd BoolOp = "AND"
	BoolOr  BoolOp = "OR"
)

// WhereKind discriminates the closed set of where-clause variants.
// Compilation dispatches over this tag; an unknown value is a compile error,
// never a silent fallback.
type WhereKind int

// Where-clause variants.
const (
	WhereBasic WhereKind = iota
	WhereRaw
	WhereIn
	WhereNotIn
	WhereNull
	WhereNotNull
	WhereNested
	WhereExists
	WhereNotExists
)

// String returns the variant name for error messages.
func (k WhereKind) String() string {
	switch k {
	case WhereBasic:
		return "basic"
	case WhereRaw:
		return "raw"
	case WhereIn:
		return "in"
	case WhereNotIn:
		return "not in"
	case WhereNull:
		return "null"
	case WhereNotNull:
		return "not null"
	case WhereNested:
		return "nested"
	case WhereExists:
		return "exists"
	case WhereNotExists:
		return "not exists"
	default:
		return "unknown"
	}
}

// Where is one clause in a where (or having) list.
//
// Which fields are meaningful depends on Kind:
//   - WhereBasic: Column, Operator, Value
//   - WhereRaw: SQL plus zero or more Values bound positionally; the engine
//     never parses or rewrites placeholders inside SQL
//   - WhereIn/WhereNotIn: Column, Values bound positionally
//   - WhereNull/WhereNotNull: Column only, no binding
//   - WhereNested: Nested (group of clauses compiled in parentheses)
//   - WhereExists/WhereNotExists: Nested (a full sub-select)
//
// Scope carries the name of the global scope that contributed the clause,
// empty for clauses added directly by the caller.
type Where struct {
	Kind     WhereKind
	Column   string
	Operator string
	Value    interface{}
	Values   []interface{}
	SQL      string
	Nested   *Query
	Boolean  BoolOp
	Scope    string
}

// JoinKind discriminates join variants.
type JoinKind int

// Join variants.
const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
)

// String returns the SQL keyword for the join kind.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	default:
		return "JOIN"
	}
}

// JoinCondition is one ON condition. Either First/Operator/Second compare two
// identifiers, or SQL carries a raw fragment with positional Values.
type JoinCondition struct {
	First    string
	Operator string
	Second   string
	SQL      string
	Values   []interface{}
	Boolean  BoolOp
}

// Join describes one JOIN clause.
type Join struct {
	Kind  JoinKind
	Table string
	On    []JoinCondition
}

// Order is one ORDER BY entry.
type Order struct {
	Column     string
	Descending bool
}

// SelectExpr is one select-list entry: a plain column identifier, or a raw
// SQL expression with positional bindings.
type SelectExpr struct {
	Column string
	SQL    string
	Raw    bool
	Values []interface{}
}

// Union is one unioned query; each carries its own binding set, concatenated
// after the base query's bindings in declaration order.
type Union struct {
	Query *Query
	All   bool
}
