package grammar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/eloq/internal/query"
)

func intPtr(n int) *int { return &n }

func TestGet(t *testing.T) {
	for _, name := range []string{"sqlite", "sqlite3", "postgres", "postgresql", "pgx", "mysql"} {
		g, err := Get(name)
		require.NoError(t, err, name)
		require.NotNil(t, g, name)
	}

	_, err := Get("oracle")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestWrap(t *testing.T) {
	sqlite := &SQLite{}
	mysql := &MySQL{}

	tests := []struct {
		in         string
		wantQuoted string
		wantTicked string
	}{
		{"users", `"users"`, "`users`"},
		{"users.id", `"users"."id"`, "`users`.`id`"},
		{"users.*", `"users".*`, "`users`.*"},
		{"*", "*", "*"},
		{`"users"`, `"users"`, "`\"users\"`"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantQuoted, sqlite.Wrap(tt.in), tt.in)
		assert.Equal(t, tt.wantTicked, mysql.Wrap(tt.in), tt.in)
	}

	// Quoting is idempotent.
	assert.Equal(t, `"users"."id"`, sqlite.Wrap(sqlite.Wrap("users.id")))
}

func TestCompileSelect_ClauseOrder(t *testing.T) {
	g := &SQLite{}
	q := &query.Query{
		Table:    "orders",
		Alias:    "o",
		Columns:  []query.SelectExpr{{Column: "o.id"}, {Column: "o.total"}},
		Distinct: true,
		Joins: []query.Join{{
			Kind:  query.JoinLeft,
			Table: "users",
			On:    []query.JoinCondition{{First: "users.id", Operator: "=", Second: "o.user_id", Boolean: query.BoolAnd}},
		}},
		Wheres: []query.Where{{Kind: query.WhereBasic, Column: "o.total", Operator: ">", Value: 100, Boolean: query.BoolAnd}},
		Groups: []string{"o.user_id"},
		Havings: []query.Where{
			{Kind: query.WhereRaw, SQL: "COUNT(*) > ?", Values: []interface{}{2}, Boolean: query.BoolAnd},
		},
		Orders: []query.Order{{Column: "o.total", Descending: true}},
		Limit:  intPtr(10),
		Offset: intPtr(20),
	}

	sql, args, err := g.CompileSelect(q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT DISTINCT "o"."id", "o"."total" FROM "orders" AS "o"`+
			` LEFT JOIN "users" ON "users"."id" = "o"."user_id"`+
			` WHERE "o"."total" > ?`+
			` GROUP BY "o"."user_id"`+
			` HAVING COUNT(*) > ?`+
			` ORDER BY "o"."total" DESC LIMIT 10 OFFSET 20`,
		sql)
	assert.Equal(t, []interface{}{100, 2}, args)
}

func TestCompileSelect_Defaults(t *testing.T) {
	g := &SQLite{}
	sql, args, err := g.CompileSelect(&query.Query{Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users"`, sql)
	assert.Empty(t, args)
}

func TestCompileSelect_WhereKinds(t *testing.T) {
	g := &SQLite{}

	tests := []struct {
		name     string
		wheres   []query.Where
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "or connector",
			wheres: []query.Where{
				{Kind: query.WhereBasic, Column: "votes", Operator: ">", Value: 100, Boolean: query.BoolAnd},
				{Kind: query.WhereBasic, Column: "name", Operator: "=", Value: "Abigail", Boolean: query.BoolOr},
			},
			wantSQL:  `SELECT * FROM "users" WHERE "votes" > ? OR "name" = ?`,
			wantArgs: []interface{}{100, "Abigail"},
		},
		{
			name: "in",
			wheres: []query.Where{
				{Kind: query.WhereIn, Column: "id", Values: []interface{}{1, 2, 3}, Boolean: query.BoolAnd},
			},
			wantSQL:  `SELECT * FROM "users" WHERE "id" IN (?, ?, ?)`,
			wantArgs: []interface{}{1, 2, 3},
		},
		{
			name: "empty in is constant false",
			wheres: []query.Where{
				{Kind: query.WhereIn, Column: "id", Boolean: query.BoolAnd},
			},
			wantSQL: `SELECT * FROM "users" WHERE 0 = 1`,
		},
		{
			name: "empty not in is constant true",
			wheres: []query.Where{
				{Kind: query.WhereNotIn, Column: "id", Boolean: query.BoolAnd},
			},
			wantSQL: `SELECT * FROM "users" WHERE 1 = 1`,
		},
		{
			name: "null checks carry no binding",
			wheres: []query.Where{
				{Kind: query.WhereNull, Column: "deleted_at", Boolean: query.BoolAnd},
				{Kind: query.WhereNotNull, Column: "email", Boolean: query.BoolAnd},
			},
			wantSQL: `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL`,
		},
		{
			name: "nested group parenthesized",
			wheres: []query.Where{
				{Kind: query.WhereBasic, Column: "active", Operator: "=", Value: 1, Boolean: query.BoolAnd},
				{Kind: query.WhereNested, Boolean: query.BoolOr, Nested: &query.Query{
					Wheres: []query.Where{
						{Kind: query.WhereBasic, Column: "votes", Operator: ">", Value: 100, Boolean: query.BoolAnd},
						{Kind: query.WhereBasic, Column: "name", Operator: "=", Value: "Abigail", Boolean: query.BoolAnd},
					},
				}},
			},
			wantSQL:  `SELECT * FROM "users" WHERE "active" = ? OR ("votes" > ? AND "name" = ?)`,
			wantArgs: []interface{}{1, 100, "Abigail"},
		},
		{
			name: "raw fragment verbatim",
			wheres: []query.Where{
				{Kind: query.WhereRaw, SQL: "LOWER(email) = ?", Values: []interface{}{"x@y.z"}, Boolean: query.BoolAnd},
			},
			wantSQL:  `SELECT * FROM "users" WHERE LOWER(email) = ?`,
			wantArgs: []interface{}{"x@y.z"},
		},
		{
			name: "exists sub-select",
			wheres: []query.Where{
				{Kind: query.WhereExists, Boolean: query.BoolAnd, Nested: &query.Query{
					Table: "orders",
					Wheres: []query.Where{
						{Kind: query.WhereRaw, SQL: "orders.user_id = users.id", Boolean: query.BoolAnd},
					},
				}},
			},
			wantSQL: `SELECT * FROM "users" WHERE EXISTS (SELECT * FROM "orders" WHERE orders.user_id = users.id)`,
		},
		{
			name: "not exists sub-select",
			wheres: []query.Where{
				{Kind: query.WhereNotExists, Boolean: query.BoolAnd, Nested: &query.Query{Table: "bans"}},
			},
			wantSQL: `SELECT * FROM "users" WHERE NOT EXISTS (SELECT * FROM "bans")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := g.CompileSelect(&query.Query{Table: "users", Wheres: tt.wheres})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestCompileSelect_NumberedPlaceholders(t *testing.T) {
	g := &Postgres{}
	q := &query.Query{
		Table: "users",
		Wheres: []query.Where{
			{Kind: query.WhereBasic, Column: "age", Operator: ">", Value: 25, Boolean: query.BoolAnd},
			{Kind: query.WhereIn, Column: "status", Values: []interface{}{"a", "b"}, Boolean: query.BoolAnd},
			{Kind: query.WhereRaw, SQL: "LOWER(name) = ?", Values: []interface{}{"david"}, Boolean: query.BoolAnd},
		},
	}

	sql, args, err := g.CompileSelect(q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "age" > $1 AND "status" IN ($2, $3) AND LOWER(name) = $4`,
		sql)
	assert.Equal(t, []interface{}{25, "a", "b", "david"}, args)
}

func TestCompileSelect_NumberedSpanUnions(t *testing.T) {
	g := &Postgres{}
	q := &query.Query{
		Table: "users",
		Wheres: []query.Where{
			{Kind: query.WhereBasic, Column: "active", Operator: "=", Value: true, Boolean: query.BoolAnd},
		},
		Unions: []query.Union{{
			All: true,
			Query: &query.Query{
				Table: "archived_users",
				Wheres: []query.Where{
					{Kind: query.WhereBasic, Column: "active", Operator: "=", Value: false, Boolean: query.BoolAnd},
				},
			},
		}},
	}

	sql, args, err := g.CompileSelect(q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "active" = $1 UNION ALL SELECT * FROM "archived_users" WHERE "active" = $2`,
		sql)
	assert.Equal(t, []interface{}{true, false}, args)
}

func TestCompileSelect_RawPlaceholderInsideQuotes(t *testing.T) {
	// A ? inside a quoted literal is data, not a placeholder.
	g := &Postgres{}
	q := &query.Query{
		Table: "posts",
		Wheres: []query.Where{
			{Kind: query.WhereRaw, SQL: "title LIKE '%?%' AND votes > ?", Values: []interface{}{10}, Boolean: query.BoolAnd},
		},
	}

	sql, args, err := g.CompileSelect(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" WHERE title LIKE '%?%' AND votes > $1`, sql)
	assert.Equal(t, []interface{}{10}, args)
}

func TestCompileSelect_SurplusRawBindings(t *testing.T) {
	g := &SQLite{}
	q := &query.Query{
		Table: "users",
		Wheres: []query.Where{
			{Kind: query.WhereRaw, SQL: "id = ?", Values: []interface{}{1, 2}, Boolean: query.BoolAnd},
		},
	}

	_, args, err := g.CompileSelect(q)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 2}, args)
}

func TestCompileSelect_RightJoinRejectedBySQLite(t *testing.T) {
	q := &query.Query{
		Table: "users",
		Joins: []query.Join{{
			Kind:  query.JoinRight,
			Table: "orders",
			On:    []query.JoinCondition{{First: "orders.user_id", Operator: "=", Second: "users.id", Boolean: query.BoolAnd}},
		}},
	}

	_, _, err := (&SQLite{}).CompileSelect(q)
	require.Error(t, err)
	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "sqlite", ce.Grammar)
	assert.Equal(t, "RIGHT JOIN", ce.Construct)

	// Postgres and MySQL accept the same snapshot.
	_, _, err = (&Postgres{}).CompileSelect(q)
	assert.NoError(t, err)
	_, _, err = (&MySQL{}).CompileSelect(q)
	assert.NoError(t, err)
}

func TestCompileSelect_Deterministic(t *testing.T) {
	g := &Postgres{}
	q := &query.Query{
		Table: "users",
		Wheres: []query.Where{
			{Kind: query.WhereIn, Column: "id", Values: []interface{}{3, 1, 2}, Boolean: query.BoolAnd},
		},
	}

	first, firstArgs, err := g.CompileSelect(q)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		sql, args, err := g.CompileSelect(q)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
		assert.Equal(t, firstArgs, args)
	}
}

func TestCompileInsert(t *testing.T) {
	sql, args, err := (&SQLite{}).CompileInsert("users", map[string]interface{}{
		"name":  "David",
		"email": "d@example.com",
		"age":   30,
	})
	require.NoError(t, err)
	// Keys compile in sorted order regardless of map iteration.
	assert.Equal(t, `INSERT INTO "users" ("age", "email", "name") VALUES (?, ?, ?)`, sql)
	assert.Equal(t, []interface{}{30, "d@example.com", "David"}, args)
}

func TestCompileInsertReturning(t *testing.T) {
	sql, args, err := (&Postgres{}).CompileInsertReturning("users", map[string]interface{}{
		"name": "David",
	}, "id")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`, sql)
	assert.Equal(t, []interface{}{"David"}, args)

	var ce *CompilationError
	_, _, err = (&SQLite{}).CompileInsertReturning("users", map[string]interface{}{"name": "x"}, "id")
	require.ErrorAs(t, err, &ce)
	_, _, err = (&MySQL{}).CompileInsertReturning("users", map[string]interface{}{"name": "x"}, "id")
	require.ErrorAs(t, err, &ce)
}

func TestCompileUpdate(t *testing.T) {
	sql, args, err := (&Postgres{}).CompileUpdate("users",
		map[string]interface{}{"name": "David", "age": 31},
		[]query.Where{{Kind: query.WhereBasic, Column: "id", Operator: "=", Value: 7, Boolean: query.BoolAnd}},
	)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "age" = $1, "name" = $2 WHERE "id" = $3`, sql)
	assert.Equal(t, []interface{}{31, "David", 7}, args)
}

func TestCompileDelete(t *testing.T) {
	sql, args, err := (&MySQL{}).CompileDelete("users",
		[]query.Where{{Kind: query.WhereBasic, Column: "id", Operator: "=", Value: 7, Boolean: query.BoolAnd}},
	)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = ?", sql)
	assert.Equal(t, []interface{}{7}, args)

	// No where list deletes everything; the builder layer decides whether to
	// allow that.
	sql, args, err = (&MySQL{}).CompileDelete("users", nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users`", sql)
	assert.Empty(t, args)
}

func TestCompileCreateTable(t *testing.T) {
	sql, err := (&SQLite{}).CompileCreateTable("users", []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT",
		"name TEXT NOT NULL",
	})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "users" (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`, sql)

	_, err = (&SQLite{}).CompileCreateTable("users", nil)
	require.Error(t, err)
}

func TestPrepareBindings(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	// Dialects without native booleans store 0/1.
	out := (&SQLite{}).PrepareBindings([]interface{}{true, false, "x", ts})
	assert.Equal(t, []interface{}{1, 0, "x", "2024-03-15 10:30:00"}, out)

	out = (&MySQL{}).PrepareBindings([]interface{}{true, false})
	assert.Equal(t, []interface{}{1, 0}, out)

	// Postgres passes booleans through unchanged.
	out = (&Postgres{}).PrepareBindings([]interface{}{true, false, ts})
	assert.Equal(t, []interface{}{true, false, "2024-03-15 10:30:00"}, out)
}

func TestLiteral(t *testing.T) {
	sqlite := &SQLite{}
	pg := &Postgres{}

	assert.Equal(t, "NULL", sqlite.Literal(nil))
	assert.Equal(t, "42", sqlite.Literal(42))
	assert.Equal(t, "3.5", sqlite.Literal(3.5))
	assert.Equal(t, "'David'", sqlite.Literal("David"))
	assert.Equal(t, "'O''Brien'", sqlite.Literal("O'Brien"))
	assert.Equal(t, "1", sqlite.Literal(true))
	assert.Equal(t, "0", sqlite.Literal(false))
	assert.Equal(t, "TRUE", pg.Literal(true))
	assert.Equal(t, "FALSE", pg.Literal(false))

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "'2024-03-15 10:30:00'", sqlite.Literal(ts))
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, CountPlaceholders("SELECT 1"))
	assert.Equal(t, 2, CountPlaceholders("a = ? AND b = ?"))
	assert.Equal(t, 1, CountPlaceholders("a = '?' AND b = ?"))
	assert.Equal(t, 0, CountPlaceholders(`a = "?"`))
}
