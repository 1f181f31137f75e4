// Package grammar lowers query snapshots to dialect-correct SQL text plus an
// ordered binding list. One Grammar implementation exists per supported
// dialect (SQLite, PostgreSQL, MySQL); grammars are stateless and read-only
// once constructed, so a single instance is safely shared across concurrent
// compile calls. All per-compile state (the binding list and the placeholder
// counter for numbered dialects) lives in a compile-local state value.
package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/eloq/internal/query"
)

// TimeFormat is the canonical string form for date/time binding values,
// applied uniformly across dialects by PrepareBindings.
const TimeFormat = "2006-01-02 15:04:05"

// Grammar compiles query snapshots into SQL for one dialect.
type Grammar interface {
	// Name returns the dialect name used in error messages.
	Name() string

	// CompileSelect lowers a snapshot to a SELECT statement and its ordered
	// binding list. Compilation is deterministic: the same snapshot always
	// yields byte-identical output.
	CompileSelect(q *query.Query) (string, []interface{}, error)

	// CompileInsert builds an INSERT for a column-value map. Map keys are
	// sorted so the generated SQL is deterministic.
	CompileInsert(table string, values map[string]interface{}) (string, []interface{}, error)

	// CompileInsertReturning builds an INSERT that yields the generated
	// primary key in the result rows. Dialects without RETURNING support
	// fail with a CompilationError; callers must check SupportsReturning
	// and fall back to a last-insert-id round-trip.
	CompileInsertReturning(table string, values map[string]interface{}, pk string) (string, []interface{}, error)

	// CompileUpdate builds an UPDATE with the given SET map and where list.
	CompileUpdate(table string, values map[string]interface{}, wheres []query.Where) (string, []interface{}, error)

	// CompileDelete builds a DELETE constrained by the given where list.
	CompileDelete(table string, wheres []query.Where) (string, []interface{}, error)

	// CompileCreateTable builds a CREATE TABLE from raw column definitions.
	CompileCreateTable(table string, columns []string) (string, error)

	// Wrap quotes an identifier or dotted table.column path, quoting each
	// segment independently. Idempotent; the * wildcard is never quoted.
	Wrap(identifier string) string

	// Placeholder returns the token for the n-th bound value of one compile
	// call. Positional dialects ignore n and return "?"; numbered dialects
	// return "$n".
	Placeholder(n int) string

	// PrepareBindings applies dialect-specific value coercion immediately
	// before execution (e.g. booleans to 0/1 on dialects without a native
	// boolean type). Applied once, after compilation.
	PrepareBindings(values []interface{}) []interface{}

	// Literal renders a value as a dialect-appropriate SQL literal. Used
	// only by the debug interpolation path, never for execution.
	Literal(value interface{}) string

	// SupportsReturning reports whether INSERT can yield the generated key
	// through a RETURNING clause instead of a last-insert-id round-trip.
	SupportsReturning() bool
}

// ErrUnsupported is returned when no grammar is registered for a driver name.
var ErrUnsupported = errors.New("unsupported SQL dialect")

var registry = make(map[string]Grammar)

// Register registers a grammar under a driver name. Called from init.
func Register(name string, g Grammar) {
	registry[name] = g
}

// Get returns the grammar registered for a driver name.
func Get(name string) (Grammar, error) {
	if g, ok := registry[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// CompilationError reports a clause the active dialect cannot compile.
// It is fatal to the compile call and never retried.
type CompilationError struct {
	Grammar   string
	Construct string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s grammar cannot compile %s", e.Grammar, e.Construct)
}

// state carries the per-compile binding list and placeholder counter.
// Numbered dialects require the counter to span the whole statement,
// including unions and sub-selects, because the compiled text is one
// statement.
type state struct {
	g    Grammar
	args []interface{}
	n    int
}

// param binds one value and returns its placeholder token.
func (s *state) param(v interface{}) string {
	s.n++
	s.args = append(s.args, v)
	return s.g.Placeholder(s.n)
}

// rawFragment emits caller-supplied raw SQL. The builder never parses or
// rewrites raw text; here each ? outside quoted spans is translated to the
// dialect's placeholder token (a no-op for positional dialects) and the
// caller's bindings are appended positionally. Surplus bindings beyond the
// placeholder count are still appended so the binding list stays faithful to
// the caller's declaration.
func (s *state) rawFragment(sql string, values []interface{}) string {
	i := 0
	out := ReplacePlaceholders(sql, func() string {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		i++
		return s.param(v)
	})
	for ; i < len(values); i++ {
		s.args = append(s.args, values[i])
	}
	return out
}

// ReplacePlaceholders rewrites each ? occurring outside single- or
// double-quoted spans with the value returned by repl. Quoted spans use SQL
// doubling for embedded quotes, which the scan handles naturally since a
// doubled quote closes and reopens the span.
func ReplacePlaceholders(sql string, repl func() string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == '?':
			b.WriteString(repl())
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// CountPlaceholders returns the number of ? tokens outside quoted spans.
func CountPlaceholders(sql string) int {
	n := 0
	ReplacePlaceholders(sql, func() string {
		n++
		return "?"
	})
	return n
}

// joinSupport is implemented by grammars that reject some join kinds.
type joinSupport interface {
	SupportsJoinKind(k query.JoinKind) bool
}

// wrapWith quotes an identifier path with the given quote rune, one segment
// at a time. Already-quoted segments and the * wildcard pass through
// unchanged, making the operation idempotent.
func wrapWith(quote string, identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case p == "*":
			parts[i] = p
		case len(p) >= 2 && strings.HasPrefix(p, quote) && strings.HasSuffix(p, quote):
			parts[i] = p
		default:
			parts[i] = quote + strings.ReplaceAll(p, quote, quote+quote) + quote
		}
	}
	return strings.Join(parts, ".")
}

// compileSelect assembles the fixed clause order:
// SELECT .. FROM .. JOIN .. WHERE .. GROUP BY .. HAVING .. ORDER BY ..
// LIMIT .. OFFSET .. UNION. Empty clauses are omitted entirely.
func compileSelect(g Grammar, q *query.Query) (string, []interface{}, error) {
	s := &state{g: g}
	sql, err := compileSelectInto(s, q)
	if err != nil {
		return "", nil, err
	}
	return sql, s.args, nil
}

func compileSelectInto(s *state, q *query.Query) (string, error) {
	g := s.g
	var b strings.Builder

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(compileColumns(s, q.Columns))

	b.WriteString(" FROM ")
	b.WriteString(g.Wrap(q.Table))
	if q.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(g.Wrap(q.Alias))
	}

	for _, j := range q.Joins {
		if js, ok := g.(joinSupport); ok && !js.SupportsJoinKind(j.Kind) {
			return "", &CompilationError{Grammar: g.Name(), Construct: j.Kind.String()}
		}
		b.WriteString(" ")
		b.WriteString(j.Kind.String())
		b.WriteString(" ")
		b.WriteString(g.Wrap(j.Table))
		b.WriteString(" ON ")
		for i, on := range j.On {
			if i > 0 {
				b.WriteString(" " + string(on.Boolean) + " ")
			}
			if on.SQL != "" {
				b.WriteString(s.rawFragment(on.SQL, on.Values))
				continue
			}
			b.WriteString(g.Wrap(on.First) + " " + on.Operator + " " + g.Wrap(on.Second))
		}
	}

	if len(q.Wheres) > 0 {
		sql, err := compileWhereList(s, q.Wheres)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
	}

	if len(q.Groups) > 0 {
		cols := make([]string, len(q.Groups))
		for i, c := range q.Groups {
			cols[i] = g.Wrap(c)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(cols, ", "))
	}

	if len(q.Havings) > 0 {
		sql, err := compileWhereList(s, q.Havings)
		if err != nil {
			return "", err
		}
		b.WriteString(" HAVING ")
		b.WriteString(sql)
	}

	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := " ASC"
			if o.Descending {
				dir = " DESC"
			}
			parts[i] = g.Wrap(o.Column) + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if q.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *q.Offset)
	}

	for _, u := range q.Unions {
		if u.All {
			b.WriteString(" UNION ALL ")
		} else {
			b.WriteString(" UNION ")
		}
		sql, err := compileSelectInto(s, u.Query)
		if err != nil {
			return "", err
		}
		b.WriteString(sql)
	}

	return b.String(), nil
}

func compileColumns(s *state, cols []query.SelectExpr) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Raw {
			parts[i] = s.rawFragment(c.SQL, c.Values)
			continue
		}
		parts[i] = s.g.Wrap(c.Column)
	}
	return strings.Join(parts, ", ")
}

// compileWhereList renders the boolean tree. The first clause never carries a
// leading boolean keyword; nested groups are parenthesized so OR-joined runs
// keep correct precedence.
func compileWhereList(s *state, wheres []query.Where) (string, error) {
	g := s.g
	var b strings.Builder

	for i, w := range wheres {
		if i > 0 {
			bo := w.Boolean
			if bo == "" {
				bo = query.BoolAnd
			}
			b.WriteString(" " + string(bo) + " ")
		}

		switch w.Kind {
		case query.WhereBasic:
			b.WriteString(g.Wrap(w.Column) + " " + w.Operator + " " + s.param(w.Value))

		case query.WhereRaw:
			b.WriteString(s.rawFragment(w.SQL, w.Values))

		case query.WhereIn, query.WhereNotIn:
			sql, err := compileWhereIn(s, w)
			if err != nil {
				return "", err
			}
			b.WriteString(sql)

		case query.WhereNull:
			b.WriteString(g.Wrap(w.Column) + " IS NULL")

		case query.WhereNotNull:
			b.WriteString(g.Wrap(w.Column) + " IS NOT NULL")

		case query.WhereNested:
			inner, err := compileWhereList(s, w.Nested.Wheres)
			if err != nil {
				return "", err
			}
			b.WriteString("(" + inner + ")")

		case query.WhereExists, query.WhereNotExists:
			sub, err := compileSelectInto(s, w.Nested)
			if err != nil {
				return "", err
			}
			if w.Kind == query.WhereNotExists {
				b.WriteString("NOT ")
			}
			b.WriteString("EXISTS (" + sub + ")")

		default:
			return "", &CompilationError{Grammar: g.Name(), Construct: "where clause kind " + w.Kind.String()}
		}
	}

	return b.String(), nil
}

// compileWhereIn renders IN/NOT IN. An empty IN list can never match, so it
// compiles to a constant false predicate; an empty NOT IN is constant true.
func compileWhereIn(s *state, w query.Where) (string, error) {
	not := w.Kind == query.WhereNotIn
	if len(w.Values) == 0 {
		if not {
			return "1 = 1", nil
		}
		return "0 = 1", nil
	}

	placeholders := make([]string, len(w.Values))
	for i, v := range w.Values {
		placeholders[i] = s.param(v)
	}

	op := " IN ("
	if not {
		op = " NOT IN ("
	}
	return s.g.Wrap(w.Column) + op + strings.Join(placeholders, ", ") + ")", nil
}

// sortedKeys returns map keys in sorted order for deterministic SQL.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compileInsert(g Grammar, table string, values map[string]interface{}) (string, []interface{}, error) {
	s := &state{g: g}
	keys := sortedKeys(values)

	cols := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = g.Wrap(k)
		placeholders[i] = s.param(values[k])
	}

	sql := "INSERT INTO " + g.Wrap(table) +
		" (" + strings.Join(cols, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
	return sql, s.args, nil
}

func compileUpdate(g Grammar, table string, values map[string]interface{}, wheres []query.Where) (string, []interface{}, error) {
	s := &state{g: g}
	keys := sortedKeys(values)

	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = g.Wrap(k) + " = " + s.param(values[k])
	}

	sql := "UPDATE " + g.Wrap(table) + " SET " + strings.Join(sets, ", ")
	if len(wheres) > 0 {
		where, err := compileWhereList(s, wheres)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + where
	}
	return sql, s.args, nil
}

func compileDelete(g Grammar, table string, wheres []query.Where) (string, []interface{}, error) {
	s := &state{g: g}

	sql := "DELETE FROM " + g.Wrap(table)
	if len(wheres) > 0 {
		where, err := compileWhereList(s, wheres)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + where
	}
	return sql, s.args, nil
}

func compileCreateTable(g Grammar, table string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", &CompilationError{Grammar: g.Name(), Construct: "CREATE TABLE without columns"}
	}
	return "CREATE TABLE " + g.Wrap(table) + " (" + strings.Join(columns, ", ") + ")", nil
}
