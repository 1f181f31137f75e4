package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopedModel() (*Registry, *Model) {
	m := &Model{
		Name:  "Post",
		Table: "posts",
		Scopes: []Scope{
			{Name: "published", Apply: func(b *Builder) { b.WhereNotNull("published_at") }},
			{Name: "recent", Apply: func(b *Builder) { b.Where("created_at", ">", "2024-01-01") }},
		},
	}
	reg := NewRegistry().Register(m)
	return reg, m
}

func TestScopes_AppliedInRegistrationOrder(t *testing.T) {
	reg, m := scopedModel()
	b := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").Where("author_id", 7)

	sql, args, err := b.ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "posts" WHERE "author_id" = ? AND "published_at" IS NOT NULL AND "created_at" > ?`,
		sql)
	assert.Equal(t, []interface{}{7, "2024-01-01"}, args)
}

func TestScopes_BuilderUntouched(t *testing.T) {
	reg, m := scopedModel()
	b := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts")

	first, _, err := b.ToSQL()
	require.NoError(t, err)
	second, _, err := b.ToSQL()
	require.NoError(t, err)

	// Scopes apply at snapshot time on a clone, never twice.
	assert.Equal(t, first, second)
	assert.Empty(t, b.q.Wheres)
}

func TestScopes_WithoutScopeSuppressesExactlyOne(t *testing.T) {
	reg, m := scopedModel()
	b := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").WithoutScope("published")

	sql, args, err := b.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" WHERE "created_at" > ?`, sql)
	assert.Equal(t, []interface{}{"2024-01-01"}, args)
}

func TestScopes_WithoutUnknownScopeIsNoop(t *testing.T) {
	reg, m := scopedModel()
	b := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").WithoutScope("archived")

	sql, _, err := b.ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "posts" WHERE "published_at" IS NOT NULL AND "created_at" > ?`,
		sql)
}

func TestScopes_ClausesTaggedWithScopeName(t *testing.T) {
	reg, m := scopedModel()
	b := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").Where("author_id", 7)

	snap, err := b.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Wheres, 3)
	assert.Equal(t, "", snap.Wheres[0].Scope)
	assert.Equal(t, "published", snap.Wheres[1].Scope)
	assert.Equal(t, "recent", snap.Wheres[2].Scope)
}

func TestScopes_SeeEachOthersState(t *testing.T) {
	// A later scope observes clauses contributed by earlier ones.
	var observed int
	m := &Model{
		Name:  "Post",
		Table: "posts",
		Scopes: []Scope{
			{Name: "first", Apply: func(b *Builder) { b.Where("a", 1) }},
			{Name: "second", Apply: func(b *Builder) { observed = len(b.q.Wheres); b.Where("b", 2) }},
		},
	}
	reg := NewRegistry().Register(m)

	_, err := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, observed)
}

func TestScopes_NestedGroupInheritsTag(t *testing.T) {
	m := &Model{
		Name:  "Post",
		Table: "posts",
		Scopes: []Scope{
			{Name: "visible", Apply: func(b *Builder) {
				b.WhereGroup(func(g *Builder) {
					g.WhereNull("deleted_at").OrWhere("force_visible", 1)
				})
			}},
		},
	}
	reg := NewRegistry().Register(m)

	snap, err := newBuilder(nil, sqliteGrammar(t), reg, m).Table("posts").Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Wheres, 1)
	assert.Equal(t, "visible", snap.Wheres[0].Scope)
}
