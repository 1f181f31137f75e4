package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/eloq/internal/grammar"
)

func sqliteGrammar(t *testing.T) grammar.Grammar {
	t.Helper()
	g, err := grammar.Get("sqlite")
	require.NoError(t, err)
	return g
}

func postgresGrammar(t *testing.T) grammar.Grammar {
	t.Helper()
	g, err := grammar.Get("postgres")
	require.NoError(t, err)
	return g
}

func TestBuilder_BasicChain(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("age", ">", 25).
		Where("name", "David").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "age" > ? AND "name" = ?`, sql)
	assert.Equal(t, []interface{}{25, "David"}, args)
}

func TestBuilder_SelectAndDistinct(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Select("id", "name").
		Distinct().
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "id", "name" FROM "users"`, sql)
	assert.Empty(t, args)
}

func TestBuilder_SelectRawBindings(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		SelectRaw("COUNT(*) AS n").
		SelectRaw("? AS flag", 1).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS n, ? AS flag FROM "users"`, sql)
	assert.Equal(t, []interface{}{1}, args)
}

func TestBuilder_WhereGroup(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("active", 1).
		OrWhereGroup(func(g *Builder) {
			g.Where("votes", ">", 100).OrWhere("name", "Abigail")
		}).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "active" = ? OR ("votes" > ? OR "name" = ?)`, sql)
	assert.Equal(t, []interface{}{1, 100, "Abigail"}, args)
}

func TestBuilder_EmptyGroupOmitted(t *testing.T) {
	sql, _, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		WhereGroup(func(g *Builder) {}).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users"`, sql)
}

func TestBuilder_WhereExists(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		WhereExists(func(s *Builder) {
			s.Table("orders").WhereRaw("orders.user_id = users.id").Where("total", ">", 50)
		}).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE EXISTS (SELECT * FROM "orders" WHERE orders.user_id = users.id AND "total" > ?)`,
		sql)
	assert.Equal(t, []interface{}{50}, args)
}

func TestBuilder_JoinsWithOn(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Join("orders", "orders.user_id", "=", "users.id").
		On("orders.status", "=", "users.preferred_status").
		OnRaw("orders.created_at > ?", "2024-01-01").
		LeftJoin("profiles", "profiles.user_id", "=", "users.id").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users"`+
			` INNER JOIN "orders" ON "orders"."user_id" = "users"."id"`+
			` AND "orders"."status" = "users"."preferred_status"`+
			` AND orders.created_at > ?`+
			` LEFT JOIN "profiles" ON "profiles"."user_id" = "users"."id"`,
		sql)
	assert.Equal(t, []interface{}{"2024-01-01"}, args)
}

func TestBuilder_HavingMovesClause(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("orders").
		SelectRaw("COUNT(*) AS n").
		GroupBy("status").
		Having("status", "shipped").
		HavingRaw("COUNT(*) > ?", 3).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) AS n FROM "orders" GROUP BY "status" HAVING "status" = ? AND COUNT(*) > ?`,
		sql)
	assert.Equal(t, []interface{}{"shipped", 3}, args)
}

func TestBuilder_UnionBindingOrder(t *testing.T) {
	g := postgresGrammar(t)
	base := NewBuilder(g).Table("users").Where("active", true)
	other := NewBuilder(g).Table("archived_users").Where("active", false)

	sql, args, err := base.UnionAll(other).ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "active" = $1 UNION ALL SELECT * FROM "archived_users" WHERE "active" = $2`,
		sql)
	assert.Equal(t, []interface{}{true, false}, args)
}

func TestBuilder_InvalidIdentifierDeferred(t *testing.T) {
	// The chain stays uninterrupted; the terminal surfaces the first error.
	_, _, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("age; DROP TABLE users", 1).
		Where("name", "David").
		ToSQL()
	require.Error(t, err)

	var ice *InvalidClauseError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "age; DROP TABLE users", ice.Identifier)
}

func TestBuilder_InvalidOperator(t *testing.T) {
	_, _, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("age", "SOUNDS LIKE", 1).
		ToSQL()
	var ice *InvalidClauseError
	require.ErrorAs(t, err, &ice)
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	_, _, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("bad ident", 1).
		Limit(-1).
		ToSQL()
	var ice *InvalidClauseError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "bad ident", ice.Identifier)
}

func TestBuilder_NegativeLimitOffset(t *testing.T) {
	_, _, err := NewBuilder(sqliteGrammar(t)).Table("users").Limit(-1).ToSQL()
	require.Error(t, err)

	_, _, err = NewBuilder(sqliteGrammar(t)).Table("users").Offset(-5).ToSQL()
	require.Error(t, err)

	sql, _, err := NewBuilder(sqliteGrammar(t)).Table("users").Limit(0).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" LIMIT 0`, sql)
}

func TestBuilder_EmptyTable(t *testing.T) {
	_, _, err := NewBuilder(sqliteGrammar(t)).Table("").ToSQL()
	require.Error(t, err)
}

func TestBuilder_WhereInEmpty(t *testing.T) {
	sql, args, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		WhereIn("id").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE 0 = 1`, sql)
	assert.Empty(t, args)
}

func TestBuilder_SnapshotIsStable(t *testing.T) {
	b := NewBuilder(sqliteGrammar(t)).Table("users").Where("age", ">", 25)

	first, args1, err := b.ToSQL()
	require.NoError(t, err)
	second, args2, err := b.ToSQL()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, args1, args2)
}

func TestBuilder_ToRawSQL(t *testing.T) {
	raw, err := NewBuilder(sqliteGrammar(t)).
		Table("users").
		Where("name", "O'Brien").
		Where("age", ">", 25).
		ToRawSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "name" = 'O''Brien' AND "age" > 25`, raw)
}

func TestBuilder_ToRawSQL_Numbered(t *testing.T) {
	raw, err := NewBuilder(postgresGrammar(t)).
		Table("users").
		Where("active", true).
		Where("age", ">", 25).
		ToRawSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "active" = TRUE AND "age" > 25`, raw)
}

func TestBuilder_ConcurrentBuilders(t *testing.T) {
	// Distinct builders over one shared grammar compile concurrently.
	g := sqliteGrammar(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sql, args, err := NewBuilder(g).
				Table("users").
				Where("age", ">", 25).
				OrderBy("name").
				ToSQL()
			assert.NoError(t, err)
			assert.Equal(t, `SELECT * FROM "users" WHERE "age" > ? ORDER BY "name" ASC`, sql)
			assert.Equal(t, []interface{}{25}, args)
		}()
	}
	wg.Wait()
}
