package core

import (
	"context"
	"regexp"
	"strings"

	"github.com/coregx/eloq/internal/grammar"
	"github.com/coregx/eloq/internal/query"

	"github.com/spf13/cast"
)

// identPattern accepts plain identifiers and dotted table.column paths,
// optionally ending in .* for qualified wildcards. Anything else must go
// through the *Raw entry points; it is never silently accepted as a column.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*(\.\*)?$`)

// validOperators is the closed set of comparison operators accepted by the
// basic where/having entry points.
var validOperators = map[string]bool{
	"=": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "NOT LIKE": true, "ILIKE": true,
}

// Builder is the fluent, mutable accumulator of clauses. It is a
// single-owner, single-use construction object: mutation is intentional and
// scoped to one query's construction lifetime, and concurrent mutation of one
// builder is unsupported. Terminal operations snapshot the accumulated state
// into an immutable query value, apply global scopes, and hand it to the
// grammar.
//
// Mutators record the first misuse as a deferred error surfaced by the
// terminal operations, so chains stay uninterrupted.
type Builder struct {
	adapter  Adapter
	grammar  grammar.Grammar
	registry *Registry
	model    *Model

	q       query.Query
	eager   []string
	without map[string]bool

	// currentScope tags clauses appended while a global scope runs, so a
	// suppressed scope's clauses can be identified exactly.
	currentScope string

	err error
}

func newBuilder(a Adapter, g grammar.Grammar, reg *Registry, m *Model) *Builder {
	return &Builder{adapter: a, grammar: g, registry: reg, model: m}
}

// NewBuilder returns a detached builder for the given grammar. It can compile
// but not execute.
func NewBuilder(g grammar.Grammar) *Builder {
	return newBuilder(nil, g, nil, nil)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) checkIdent(s string) bool {
	if s == "*" || identPattern.MatchString(s) {
		return true
	}
	b.fail(&InvalidClauseError{Identifier: s, Hint: "use a raw clause for expressions"})
	return false
}

func (b *Builder) checkOperator(op string) bool {
	if validOperators[strings.ToUpper(op)] {
		return true
	}
	b.fail(&InvalidClauseError{Identifier: op, Hint: "unsupported operator, use a raw clause"})
	return false
}

// Table sets the table to query.
func (b *Builder) Table(name string) *Builder {
	if name == "" {
		b.fail(&InvalidClauseError{Identifier: name, Hint: "table name must not be empty"})
		return b
	}
	if b.checkIdent(name) {
		b.q.Table = name
	}
	return b
}

// As sets the table alias.
func (b *Builder) As(alias string) *Builder {
	if b.checkIdent(alias) {
		b.q.Alias = alias
	}
	return b
}

// Select sets the column list. Plain identifiers only; expressions go
// through SelectRaw.
func (b *Builder) Select(columns ...string) *Builder {
	for _, c := range columns {
		if b.checkIdent(c) {
			b.q.Columns = append(b.q.Columns, query.SelectExpr{Column: c})
		}
	}
	return b
}

// SelectRaw appends a raw select expression with optional bindings.
func (b *Builder) SelectRaw(sql string, bindings ...interface{}) *Builder {
	b.q.Columns = append(b.q.Columns, query.SelectExpr{SQL: sql, Raw: true, Values: bindings})
	return b
}

// Distinct marks the query as SELECT DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.q.Distinct = true
	return b
}

// where appends a basic clause with the given boolean connector.
func (b *Builder) where(boolean query.BoolOp, column string, args []interface{}) *Builder {
	var op string
	var value interface{}
	switch len(args) {
	case 1:
		op, value = "=", args[0]
	case 2:
		s, ok := args[0].(string)
		if !ok {
			b.fail(&InvalidClauseError{Identifier: column, Hint: "operator must be a string"})
			return b
		}
		op, value = s, args[1]
	default:
		b.fail(&InvalidClauseError{Identifier: column, Hint: "where expects (column, value) or (column, operator, value)"})
		return b
	}

	if !b.checkIdent(column) || !b.checkOperator(op) {
		return b
	}
	b.q.Wheres = append(b.q.Wheres, query.Where{
		Kind:     query.WhereBasic,
		Column:   column,
		Operator: op,
		Value:    value,
		Boolean:  boolean,
		Scope:    b.currentScope,
	})
	return b
}

// Where appends an AND-joined basic condition:
//
//	Where("name", "David")       // name = ?
//	Where("age", ">", 25)        // age > ?
func (b *Builder) Where(column string, args ...interface{}) *Builder {
	return b.where(query.BoolAnd, column, args)
}

// OrWhere appends an OR-joined basic condition.
func (b *Builder) OrWhere(column string, args ...interface{}) *Builder {
	return b.where(query.BoolOr, column, args)
}

// WhereIn appends column IN (values...). An empty value list compiles to a
// constant-false predicate.
func (b *Builder) WhereIn(column string, values ...interface{}) *Builder {
	if b.checkIdent(column) {
		b.q.Wheres = append(b.q.Wheres, query.Where{
			Kind: query.WhereIn, Column: column, Values: values,
			Boolean: query.BoolAnd, Scope: b.currentScope,
		})
	}
	return b
}

// WhereNotIn appends column NOT IN (values...).
func (b *Builder) WhereNotIn(column string, values ...interface{}) *Builder {
	if b.checkIdent(column) {
		b.q.Wheres = append(b.q.Wheres, query.Where{
			Kind: query.WhereNotIn, Column: column, Values: values,
			Boolean: query.BoolAnd, Scope: b.currentScope,
		})
	}
	return b
}

// WhereNull appends column IS NULL. Carries no binding.
func (b *Builder) WhereNull(column string) *Builder {
	if b.checkIdent(column) {
		b.q.Wheres = append(b.q.Wheres, query.Where{
			Kind: query.WhereNull, Column: column,
			Boolean: query.BoolAnd, Scope: b.currentScope,
		})
	}
	return b
}

// WhereNotNull appends column IS NOT NULL.
func (b *Builder) WhereNotNull(column string) *Builder {
	if b.checkIdent(column) {
		b.q.Wheres = append(b.q.Wheres, query.Where{
			Kind: query.WhereNotNull, Column: column,
			Boolean: query.BoolAnd, Scope: b.currentScope,
		})
	}
	return b
}

// WhereRaw appends a raw where fragment. The engine stores the text verbatim
// and never parses or rewrites its internal placeholders during accumulation.
func (b *Builder) WhereRaw(sql string, bindings ...interface{}) *Builder {
	b.q.Wheres = append(b.q.Wheres, query.Where{
		Kind: query.WhereRaw, SQL: sql, Values: bindings,
		Boolean: query.BoolAnd, Scope: b.currentScope,
	})
	return b
}

// OrWhereRaw appends an OR-joined raw where fragment.
func (b *Builder) OrWhereRaw(sql string, bindings ...interface{}) *Builder {
	b.q.Wheres = append(b.q.Wheres, query.Where{
		Kind: query.WhereRaw, SQL: sql, Values: bindings,
		Boolean: query.BoolOr, Scope: b.currentScope,
	})
	return b
}

// group collects clauses appended by fn into a nested, parenthesized group.
func (b *Builder) group(boolean query.BoolOp, fn func(*Builder)) *Builder {
	sub := newBuilder(nil, b.grammar, b.registry, nil)
	sub.currentScope = b.currentScope
	fn(sub)
	if sub.err != nil {
		b.fail(sub.err)
		return b
	}
	if len(sub.q.Wheres) == 0 {
		return b
	}
	nested := sub.q.Clone()
	b.q.Wheres = append(b.q.Wheres, query.Where{
		Kind: query.WhereNested, Nested: nested,
		Boolean: boolean, Scope: b.currentScope,
	})
	return b
}

// WhereGroup appends a parenthesized group of conditions joined with AND:
//
//	WhereGroup(func(g *Builder) {
//	    g.Where("votes", ">", 100).OrWhere("name", "Abigail")
//	})
func (b *Builder) WhereGroup(fn func(*Builder)) *Builder {
	return b.group(query.BoolAnd, fn)
}

// OrWhereGroup appends an OR-joined parenthesized group.
func (b *Builder) OrWhereGroup(fn func(*Builder)) *Builder {
	return b.group(query.BoolOr, fn)
}

// exists appends an EXISTS (sub-select) clause built by fn.
func (b *Builder) exists(kind query.WhereKind, fn func(*Builder)) *Builder {
	sub := newBuilder(nil, b.grammar, b.registry, nil)
	fn(sub)
	if sub.err != nil {
		b.fail(sub.err)
		return b
	}
	b.q.Wheres = append(b.q.Wheres, query.Where{
		Kind: kind, Nested: sub.q.Clone(),
		Boolean: query.BoolAnd, Scope: b.currentScope,
	})
	return b
}

// WhereExists appends WHERE EXISTS (sub-select).
func (b *Builder) WhereExists(fn func(*Builder)) *Builder {
	return b.exists(query.WhereExists, fn)
}

// WhereNotExists appends WHERE NOT EXISTS (sub-select).
func (b *Builder) WhereNotExists(fn func(*Builder)) *Builder {
	return b.exists(query.WhereNotExists, fn)
}

// join appends a join clause with a single identifier-equality condition.
func (b *Builder) join(kind query.JoinKind, table, first, op, second string) *Builder {
	if !b.checkIdent(table) || !b.checkIdent(first) || !b.checkIdent(second) || !b.checkOperator(op) {
		return b
	}
	b.q.Joins = append(b.q.Joins, query.Join{
		Kind:  kind,
		Table: table,
		On:    []query.JoinCondition{{First: first, Operator: op, Second: second, Boolean: query.BoolAnd}},
	})
	return b
}

// Join appends an INNER JOIN.
func (b *Builder) Join(table, first, op, second string) *Builder {
	return b.join(query.JoinInner, table, first, op, second)
}

// LeftJoin appends a LEFT JOIN.
func (b *Builder) LeftJoin(table, first, op, second string) *Builder {
	return b.join(query.JoinLeft, table, first, op, second)
}

// RightJoin appends a RIGHT JOIN. Whether the active grammar supports it is
// decided at compile time, not here.
func (b *Builder) RightJoin(table, first, op, second string) *Builder {
	return b.join(query.JoinRight, table, first, op, second)
}

// On appends an additional identifier-equality condition to the last join.
func (b *Builder) On(first, op, second string) *Builder {
	if len(b.q.Joins) == 0 {
		b.fail(&InvalidClauseError{Identifier: first, Hint: "On requires a preceding join"})
		return b
	}
	if !b.checkIdent(first) || !b.checkIdent(second) || !b.checkOperator(op) {
		return b
	}
	j := &b.q.Joins[len(b.q.Joins)-1]
	j.On = append(j.On, query.JoinCondition{First: first, Operator: op, Second: second, Boolean: query.BoolAnd})
	return b
}

// OnRaw appends a raw ON condition with bindings to the last join.
func (b *Builder) OnRaw(sql string, bindings ...interface{}) *Builder {
	if len(b.q.Joins) == 0 {
		b.fail(&InvalidClauseError{Identifier: sql, Hint: "OnRaw requires a preceding join"})
		return b
	}
	j := &b.q.Joins[len(b.q.Joins)-1]
	j.On = append(j.On, query.JoinCondition{SQL: sql, Values: bindings, Boolean: query.BoolAnd})
	return b
}

// GroupBy appends GROUP BY columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	for _, c := range columns {
		if b.checkIdent(c) {
			b.q.Groups = append(b.q.Groups, c)
		}
	}
	return b
}

// Having appends an AND-joined basic having condition. Shape matches Where.
func (b *Builder) Having(column string, args ...interface{}) *Builder {
	n := len(b.q.Wheres)
	b.where(query.BoolAnd, column, args)
	if len(b.q.Wheres) > n {
		b.q.Havings = append(b.q.Havings, b.q.Wheres[n])
		b.q.Wheres = b.q.Wheres[:n]
	}
	return b
}

// OrHaving appends an OR-joined basic having condition.
func (b *Builder) OrHaving(column string, args ...interface{}) *Builder {
	n := len(b.q.Wheres)
	b.where(query.BoolOr, column, args)
	if len(b.q.Wheres) > n {
		b.q.Havings = append(b.q.Havings, b.q.Wheres[n])
		b.q.Wheres = b.q.Wheres[:n]
	}
	return b
}

// HavingRaw appends a raw having fragment, typically over an aggregate.
func (b *Builder) HavingRaw(sql string, bindings ...interface{}) *Builder {
	b.q.Havings = append(b.q.Havings, query.Where{
		Kind: query.WhereRaw, SQL: sql, Values: bindings,
		Boolean: query.BoolAnd, Scope: b.currentScope,
	})
	return b
}

// OrderBy appends an ascending ORDER BY entry.
func (b *Builder) OrderBy(column string) *Builder {
	if b.checkIdent(column) {
		b.q.Orders = append(b.q.Orders, query.Order{Column: column})
	}
	return b
}

// OrderByDesc appends a descending ORDER BY entry.
func (b *Builder) OrderByDesc(column string) *Builder {
	if b.checkIdent(column) {
		b.q.Orders = append(b.q.Orders, query.Order{Column: column, Descending: true})
	}
	return b
}

// Limit sets the row limit. Negative values are rejected.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		b.fail(&InvalidClauseError{Identifier: "limit", Hint: "limit must be non-negative"})
		return b
	}
	b.q.Limit = &n
	return b
}

// Offset sets the row offset. Negative values are rejected.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		b.fail(&InvalidClauseError{Identifier: "offset", Hint: "offset must be non-negative"})
		return b
	}
	b.q.Offset = &n
	return b
}

// Union appends a UNION with another builder's query. The unioned query
// carries its own binding set, concatenated after the base query's.
func (b *Builder) Union(other *Builder) *Builder {
	return b.union(other, false)
}

// UnionAll appends a UNION ALL with another builder's query.
func (b *Builder) UnionAll(other *Builder) *Builder {
	return b.union(other, true)
}

func (b *Builder) union(other *Builder, all bool) *Builder {
	snap, err := other.Snapshot()
	if err != nil {
		b.fail(err)
		return b
	}
	b.q.Unions = append(b.q.Unions, query.Union{Query: snap, All: all})
	return b
}

// With requests eager loading of the named relations for the rows returned
// by Get. Dotted names load nested relations, one batched query per depth.
func (b *Builder) With(relations ...string) *Builder {
	b.eager = append(b.eager, relations...)
	return b
}

// WithoutScope suppresses one named global scope for this query only.
// Exactly that scope's contributed clauses are excluded; all others apply.
func (b *Builder) WithoutScope(name string) *Builder {
	if b.without == nil {
		b.without = make(map[string]bool)
	}
	b.without[name] = true
	return b
}

// Snapshot applies the model's registered global scopes in registration
// order and returns an immutable query snapshot. Each scope sees the state
// accumulated before its own appends. The builder itself is left untouched,
// so snapshotting twice yields identical output.
func (b *Builder) Snapshot() (*query.Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.model == nil || len(b.model.Scopes) == 0 {
		return b.q.Clone(), nil
	}

	scoped := *b
	scoped.q = *b.q.Clone()
	for _, s := range b.model.Scopes {
		if b.without[s.Name] {
			continue
		}
		scoped.currentScope = s.Name
		s.Apply(&scoped)
		scoped.currentScope = ""
	}
	if scoped.err != nil {
		return nil, scoped.err
	}
	return scoped.q.Clone(), nil
}

// ToSQL compiles the query to placeholder-form SQL plus the ordered binding
// list.
func (b *Builder) ToSQL() (string, []interface{}, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return "", nil, err
	}
	return b.grammar.CompileSelect(snap)
}

// ToRawSQL returns a debug-only rendering with bindings interpolated as
// dialect literals. Never executed; inspection and logging only.
func (b *Builder) ToRawSQL() (string, error) {
	sqlText, bindings, err := b.ToSQL()
	if err != nil {
		return "", err
	}
	return interpolate(b.grammar, sqlText, bindings)
}

// Get compiles and executes the query, returning all rows with any requested
// eager loads attached.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	sqlText, bindings, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := b.adapter.Query(ctx, sqlText, b.grammar.PrepareBindings(bindings))
	if err != nil {
		return nil, err
	}

	if len(b.eager) > 0 {
		if b.model == nil {
			return nil, WrapError(ErrUnknownModel, "eager loading requires a model-bound builder")
		}
		loader := &eagerLoader{adapter: b.adapter, grammar: b.grammar, registry: b.registry}
		if err := loader.Load(ctx, b.model, rows, b.eager); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// First returns the first matching row, or ErrNoRows.
func (b *Builder) First(ctx context.Context) (Row, error) {
	limited := *b
	limited.q = *b.q.Clone()
	limited.Limit(1)
	rows, err := limited.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// Value returns a single column of the first matching row.
func (b *Builder) Value(ctx context.Context, column string) (interface{}, error) {
	selected := *b
	selected.q = *b.q.Clone()
	selected.q.Columns = nil
	row, err := selected.Select(column).First(ctx)
	if err != nil {
		return nil, err
	}
	return row[column], nil
}

// Insert compiles and executes an INSERT with the given column-value map.
func (b *Builder) Insert(ctx context.Context, values map[string]interface{}) (Result, error) {
	if b.err != nil {
		return Result{}, b.err
	}
	sqlText, bindings, err := b.grammar.CompileInsert(b.q.Table, values)
	if err != nil {
		return Result{}, err
	}
	return b.adapter.Exec(ctx, sqlText, b.grammar.PrepareBindings(bindings))
}

// InsertGetID inserts a row and returns the generated primary key. On
// RETURNING-capable dialects the key comes back in the insert's result rows;
// otherwise a last-insert-id round-trip through the adapter result is used.
func (b *Builder) InsertGetID(ctx context.Context, values map[string]interface{}, pk string) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if !b.checkIdent(pk) {
		return 0, b.err
	}

	if b.grammar.SupportsReturning() {
		sqlText, bindings, err := b.grammar.CompileInsertReturning(b.q.Table, values, pk)
		if err != nil {
			return 0, err
		}
		rows, err := b.adapter.Query(ctx, sqlText, b.grammar.PrepareBindings(bindings))
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, ErrNoRows
		}
		return cast.ToInt64E(rows[0][pk])
	}

	sqlText, bindings, err := b.grammar.CompileInsert(b.q.Table, values)
	if err != nil {
		return 0, err
	}
	res, err := b.adapter.Exec(ctx, sqlText, b.grammar.PrepareBindings(bindings))
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// Update compiles and executes an UPDATE constrained by the accumulated
// where clauses. Global scopes apply.
func (b *Builder) Update(ctx context.Context, values map[string]interface{}) (Result, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return Result{}, err
	}
	sqlText, bindings, err := b.grammar.CompileUpdate(snap.Table, values, snap.Wheres)
	if err != nil {
		return Result{}, err
	}
	return b.adapter.Exec(ctx, sqlText, b.grammar.PrepareBindings(bindings))
}

// Delete compiles and executes a DELETE constrained by the accumulated where
// clauses. Global scopes apply.
func (b *Builder) Delete(ctx context.Context) (Result, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return Result{}, err
	}
	sqlText, bindings, err := b.grammar.CompileDelete(snap.Table, snap.Wheres)
	if err != nil {
		return Result{}, err
	}
	return b.adapter.Exec(ctx, sqlText, b.grammar.PrepareBindings(bindings))
}
