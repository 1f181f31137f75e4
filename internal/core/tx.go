package core

import (
	"context"
	"database/sql"
)

// Tx executes compiled statements within an open transaction. Statements
// bypass the prepared statement cache because cached statements belong to the
// pool, not the transaction's connection. The compiler never knows whether it
// is compiling for a transaction; only the adapter differs.
type Tx struct {
	tx *sql.Tx
	db *DB
}

// TxOptions represents transaction options including isolation level.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// Begin starts a transaction with default options.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with the given options.
func (db *DB) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	var sqlOpts *sql.TxOptions
	if opts != nil {
		sqlOpts = &sql.TxOptions{Isolation: opts.Isolation, ReadOnly: opts.ReadOnly}
	}

	tx, err := db.sqlDB.BeginTx(ctx, sqlOpts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

// DriverName identifies the dialect.
func (tx *Tx) DriverName() string { return tx.db.driverName }

// Table starts a builder for a plain table executing within the transaction.
func (tx *Tx) Table(name string) *Builder {
	return newBuilder(tx, tx.db.grammar, nil, nil).Table(name)
}

// Model starts a builder for a registered model executing within the
// transaction.
func (tx *Tx) Model(reg *Registry, name string) *Builder {
	b := newBuilder(tx, tx.db.grammar, reg, nil)
	m, err := reg.Model(name)
	if err != nil {
		b.fail(err)
		return b
	}
	b.model = m
	return b.Table(m.Table)
}

// Query executes a statement expected to return rows within the transaction.
func (tx *Tx) Query(ctx context.Context, sqlText string, bindings []interface{}) ([]Row, error) {
	rows, err := tx.tx.QueryContext(ctx, sqlText, bindings...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

// Exec executes a mutation statement within the transaction.
func (tx *Tx) Exec(ctx context.Context, sqlText string, bindings []interface{}) (Result, error) {
	res, err := tx.tx.ExecContext(ctx, sqlText, bindings...)
	if err != nil {
		return Result{}, err
	}
	var out Result
	out.RowsAffected, _ = res.RowsAffected()
	out.LastInsertID, _ = res.LastInsertId()
	return out, nil
}
