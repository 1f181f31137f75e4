// Package eloq provides a fluent database query builder for Go with model
// relations, global scopes and eager loading. It compiles one portable query
// representation to PostgreSQL, MySQL, and SQLite, with prepared statement
// caching, structured logging and OpenTelemetry tracing out of the box.
package eloq

import (
	"github.com/coregx/eloq/internal/core"
	"github.com/coregx/eloq/internal/grammar"
	"github.com/coregx/eloq/internal/logger"
	"github.com/coregx/eloq/internal/tracer"
)

type (
	// DB represents the main database connection with caching and tracing capabilities.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Tx represents a database transaction.
	Tx = core.Tx
	// TxOptions represents transaction options including isolation level.
	TxOptions = core.TxOptions
	// Builder constructs queries fluently and compiles them through the
	// active grammar.
	Builder = core.Builder
	// Row is a generic result row keyed by column name.
	Row = core.Row
	// Result reports the outcome of a mutation statement.
	Result = core.Result

	// Adapter is the execution boundary compiled SQL is handed to.
	Adapter = core.Adapter

	// Registry holds model definitions and polymorphic type mappings.
	Registry = core.Registry
	// Model describes a registered model: table, primary key, relations
	// and global scopes.
	Model = core.Model
	// Relation is an immutable relation descriptor.
	Relation = core.Relation
	// RelationKind discriminates relation variants.
	RelationKind = core.RelationKind
	// Scope is a named query constraint applied to every model query.
	Scope = core.Scope

	// InvalidClauseError reports a rejected identifier or operator.
	InvalidClauseError = core.InvalidClauseError
	// UnresolvedPolymorphicTypeError reports a stored discriminator with no
	// registered model.
	UnresolvedPolymorphicTypeError = core.UnresolvedPolymorphicTypeError

	// Grammar compiles the portable query representation to dialect SQL.
	Grammar = grammar.Grammar

	// Logger is the structured logging interface.
	Logger = logger.Logger
	// Tracer starts spans around query execution.
	Tracer = tracer.Tracer
)

// Relation kinds.
const (
	HasOne         = core.HasOne
	HasMany        = core.HasMany
	BelongsTo      = core.BelongsTo
	BelongsToMany  = core.BelongsToMany
	HasManyThrough = core.HasManyThrough
	MorphOne       = core.MorphOne
	MorphMany      = core.MorphMany
	MorphTo        = core.MorphTo
	MorphToMany    = core.MorphToMany
)

// PivotKey is the row key holding pivot metadata on rows loaded through a
// many-to-many relation.
const PivotKey = core.PivotKey

// Re-export core functions.
var (
	Open                  = core.Open
	WrapDB                = core.WrapDB
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer

	// Builder without an execution adapter, for SQL generation only.
	NewBuilder = core.NewBuilder

	// Model registration
	NewRegistry = core.NewRegistry

	// Relation declarations
	NewHasOne         = core.NewHasOne
	NewHasMany        = core.NewHasMany
	NewBelongsTo      = core.NewBelongsTo
	NewBelongsToMany  = core.NewBelongsToMany
	NewHasManyThrough = core.NewHasManyThrough
	NewMorphOne       = core.NewMorphOne
	NewMorphMany      = core.NewMorphMany
	NewMorphTo        = core.NewMorphTo
	NewMorphToMany    = core.NewMorphToMany

	// Sentinel errors
	ErrNoRows          = core.ErrNoRows
	ErrUnknownModel    = core.ErrUnknownModel
	ErrUnknownRelation = core.ErrUnknownRelation

	// Grammar lookup for SQL generation without a connection.
	GetGrammar = grammar.Get

	// Logger adapters
	NewSlogAdapter = logger.NewSlogAdapter
	NewZapAdapter  = logger.NewZapAdapter

	// Tracer adapters
	NewOtelTracer = tracer.NewOtelTracer
)
