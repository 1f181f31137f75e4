package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/eloq/internal/cache"
	"github.com/coregx/eloq/internal/grammar"
	"github.com/coregx/eloq/internal/logger"
	"github.com/coregx/eloq/internal/tracer"
)

// Adapter is the execution boundary the core hands compiled SQL to. The core
// treats both calls as opaque, potentially blocking operations; adapter
// errors pass through unmodified. Dialect identity selects the active
// grammar.
type Adapter interface {
	// Query executes a statement expected to return rows.
	Query(ctx context.Context, sql string, bindings []interface{}) ([]Row, error)
	// Exec executes a mutation statement.
	Exec(ctx context.Context, sql string, bindings []interface{}) (Result, error)
	// DriverName identifies the dialect.
	DriverName() string
}

// DB is the database/sql-backed adapter with statement caching, structured
// logging and tracing.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	grammar    grammar.Grammar
	stmtCache  *cache.StmtCache
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// WithLogger sets the structured logger for query execution.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// WithTracer sets the tracer for query execution spans.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		db.tracer = t
	}
}

// Open opens a database connection and selects the grammar for the driver.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return WrapDB(sqlDB, driverName, opts...)
}

// WrapDB wraps an existing *sql.DB. The driver name selects the grammar.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	g, err := grammar.Get(driverName)
	if err != nil {
		return nil, err
	}

	db := &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		grammar:    g,
		stmtCache:  cache.NewStmtCache(),
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close releases all database resources.
func (db *DB) Close() error {
	db.stmtCache.Clear()
	return db.sqlDB.Close()
}

// Grammar returns the active grammar.
func (db *DB) Grammar() grammar.Grammar { return db.grammar }

// DriverName identifies the dialect.
func (db *DB) DriverName() string { return db.driverName }

// CacheStats returns prepared statement cache statistics.
func (db *DB) CacheStats() cache.Stats { return db.stmtCache.Stats() }

// Table starts a builder for a plain table, without model scopes or
// relations.
func (db *DB) Table(name string) *Builder {
	return newBuilder(db, db.grammar, nil, nil).Table(name)
}

// Model starts a builder for a registered model: the model's table is set
// and its global scopes apply at compile time.
func (db *DB) Model(reg *Registry, name string) *Builder {
	b := newBuilder(db, db.grammar, reg, nil)
	m, err := reg.Model(name)
	if err != nil {
		b.fail(err)
		return b
	}
	b.model = m
	return b.Table(m.Table)
}

// Query executes a statement expected to return rows. This is also the raw
// escape hatch for SQL the builder cannot express.
func (db *DB) Query(ctx context.Context, sqlText string, bindings []interface{}) ([]Row, error) {
	ctx, span := db.tracer.StartSpan(ctx, "eloq.query")
	defer span.End()

	start := time.Now()
	stmt, cached, err := db.prepare(ctx, sqlText)
	if err != nil {
		db.logFailure(sqlText, bindings, err)
		return nil, err
	}
	if !cached {
		defer func() { _ = stmt.Close() }()
	}

	rows, err := stmt.QueryContext(ctx, bindings...)
	if err != nil {
		db.observe(span, sqlText, bindings, time.Since(start), 0, err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	db.observe(span, sqlText, bindings, time.Since(start), int64(len(out)), err)
	return out, err
}

// Exec executes a mutation statement.
func (db *DB) Exec(ctx context.Context, sqlText string, bindings []interface{}) (Result, error) {
	ctx, span := db.tracer.StartSpan(ctx, "eloq.exec")
	defer span.End()

	start := time.Now()
	stmt, cached, err := db.prepare(ctx, sqlText)
	if err != nil {
		db.logFailure(sqlText, bindings, err)
		return Result{}, err
	}
	if !cached {
		defer func() { _ = stmt.Close() }()
	}

	res, err := stmt.ExecContext(ctx, bindings...)
	elapsed := time.Since(start)
	if err != nil {
		db.observe(span, sqlText, bindings, elapsed, 0, err)
		return Result{}, err
	}

	var out Result
	out.RowsAffected, _ = res.RowsAffected()
	out.LastInsertID, _ = res.LastInsertId()
	db.observe(span, sqlText, bindings, elapsed, out.RowsAffected, nil)
	return out, nil
}

// prepare returns a prepared statement, consulting the LRU cache. The second
// return reports whether the statement is cached (and must not be closed by
// the caller).
func (db *DB) prepare(ctx context.Context, sqlText string) (*sql.Stmt, bool, error) {
	if stmt, ok := db.stmtCache.Get(sqlText); ok {
		return stmt, true, nil
	}
	stmt, err := db.sqlDB.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, false, err
	}
	db.stmtCache.Set(sqlText, stmt)
	return stmt, true, nil
}

func (db *DB) logFailure(sqlText string, bindings []interface{}, err error) {
	db.logger.Error("statement preparation failed",
		"sql", sqlText,
		"params", db.sanitizer.FormatParams(db.sanitizer.MaskParams(sqlText, bindings)),
		"database", db.driverName,
		"error", err,
	)
}

func (db *DB) observe(span tracer.Span, sqlText string, bindings []interface{}, elapsed time.Duration, rows int64, err error) {
	masked := db.sanitizer.FormatParams(db.sanitizer.MaskParams(sqlText, bindings))
	if err != nil {
		db.logger.Error("query execution failed",
			"sql", sqlText,
			"params", masked,
			"duration_ms", elapsed.Milliseconds(),
			"database", db.driverName,
			"error", err,
		)
	} else {
		db.logger.Info("query executed",
			"sql", sqlText,
			"params", masked,
			"duration_ms", elapsed.Milliseconds(),
			"rows", rows,
			"database", db.driverName,
		)
	}

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:       sqlText,
		Duration:  elapsed,
		Rows:      rows,
		Error:     err,
		Database:  db.driverName,
		Operation: tracer.DetectOperation(sqlText),
	})
}
