package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tx
// ─────────────────────────────────────────────────────────────────────────────

// Tx is a thin wrapper around *sqlx.Tx that mirrors the DB API surface so that
// repository code can accept either *DB or *Tx via the Querier interface.
type Tx struct {
	sqltx  *sqlx.Tx
	hooks  hookChain
	errMap ErrorMapper
	cfg    Config
}

// Raw returns the underlying *sqlx.Tx.
func (t *Tx) Raw() *sqlx.Tx { return t.sqltx }

// DriverName returns the driver name of the pool the transaction belongs to.
func (t *Tx) DriverName() string { return t.cfg.DriverName }

// BindType returns the placeholder style of the driver.
func (t *Tx) BindType() int { return sqlx.BindType(t.cfg.DriverName) }

// Exec executes a statement that does not return rows.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	t.hooks.Before(ctx, query, args)
	res, err := t.sqltx.ExecContext(ctx, query, args...)
	err = t.mapErr(err)
	t.hooks.After(ctx, query, args, time.Since(start), err)
	return res, err
}

// Query executes a query returning rows. The caller MUST close the rows.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	start := time.Now()
	t.hooks.Before(ctx, query, args)
	rows, err := t.sqltx.QueryxContext(ctx, query, args...)
	err = t.mapErr(err)
	t.hooks.After(ctx, query, args, time.Since(start), err)
	return rows, err
}

// QueryRow executes a query expected to return at most one row.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *Row {
	start := time.Now()
	t.hooks.Before(ctx, query, args)
	raw := t.sqltx.QueryRowxContext(ctx, query, args...)
	t.hooks.After(ctx, query, args, time.Since(start), nil)
	return &Row{raw: raw, errMap: t.errMap}
}

// Select runs query inside the transaction and scans all rows into dest.
func (t *Tx) Select(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	t.hooks.Before(ctx, query, args)
	err := t.mapErr(t.sqltx.SelectContext(ctx, dest, query, args...))
	t.hooks.After(ctx, query, args, time.Since(start), err)
	return err
}

// Get runs query inside the transaction and scans one row into dest.
func (t *Tx) Get(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	t.hooks.Before(ctx, query, args)
	err := t.mapErr(t.sqltx.GetContext(ctx, dest, query, args...))
	t.hooks.After(ctx, query, args, time.Since(start), err)
	return err
}

func (t *Tx) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return t.errMap.Map(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// ExecTx
// ─────────────────────────────────────────────────────────────────────────────

// TxOptions allows callers to configure isolation level and read-only flag.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// ExecTx starts a transaction, executes fn, and commits on success or rolls
// back on error or panic. Nested transactions are not supported.
//
//	err := d.ExecTx(ctx, func(tx *Tx) error {
//	    _, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
//	    return err
//	})
func (d *DB) ExecTx(ctx context.Context, fn func(*Tx) error, opts ...TxOptions) (err error) {
	ctx, cancel := d.applyDefaultTimeout(ctx)
	defer cancel()

	var sqlOpts *sql.TxOptions
	if len(opts) > 0 {
		sqlOpts = &sql.TxOptions{
			Isolation: opts[0].Isolation,
			ReadOnly:  opts[0].ReadOnly,
		}
	}

	sqltx, err := d.sqldb.BeginTxx(ctx, sqlOpts)
	if err != nil {
		return d.mapErr(err)
	}

	tx := &Tx{
		sqltx:  sqltx,
		hooks:  d.hooks,
		errMap: d.errMap,
		cfg:    d.cfg,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqltx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqltx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("userstore/db: rollback failed (%v) after original error: %w", rbErr, err)
			}
		}
	}()

	// Errors from fn already went through the mapper inside Tx.
	err = fn(tx)
	if err != nil {
		return err // rollback handled by defer
	}

	if err = sqltx.Commit(); err != nil {
		return d.mapErr(err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Querier
// ─────────────────────────────────────────────────────────────────────────────

// Querier is the interface shared by *DB and *Tx. Repository code accepts a
// Querier so the same functions run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Select(ctx context.Context, dest any, query string, args ...any) error
	Get(ctx context.Context, dest any, query string, args ...any) error
	DriverName() string
	BindType() int
}

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*Tx)(nil)
)
