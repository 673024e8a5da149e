// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// helpers to run functions inside a transaction, and driver error mapping.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/winklink/internal/logging"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is the unit of work executed by WithTx.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	return withTx(ctx, db, opts, fn, nil)
}

func withTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc, onRollback func(error)) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && onRollback != nil {
			onRollback(rbErr)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
		if err != nil {
			rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Transactor runs units of work in transactions bounded by a timeout.
// A failed rollback is logged; the error returned is always the one that
// caused the rollback.
type Transactor struct {
	db      *sql.DB
	timeout time.Duration
	log     logging.Logger
}

func NewTransactor(db *sql.DB, timeout time.Duration, log logging.Logger) *Transactor {
	if log == nil {
		log = logging.Nop{}
	}
	return &Transactor{db: db, timeout: timeout, log: log}
}

func (t *Transactor) WithTx(ctx context.Context, fn TxFunc) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	return withTx(ctx, t.db, nil, fn, func(rbErr error) {
		t.log.Error(ctx, "transaction rollback failed", "error", rbErr)
	})
}
