package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

type lockKey struct{}

var (
	txKey     = ctxKey{}
	inLockKey = lockKey{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// DBTX is the subset of *sql.DB and *sql.Tx that stores query through.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier returns the transaction carried by ctx, falling back to db.
func Querier(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx is already inside a RunInTx boundary of either runner.
func InTx(ctx context.Context) bool {
	if _, ok := From(ctx); ok {
		return true
	}
	locked, _ := ctx.Value(inLockKey).(bool)
	return locked
}

// Savepoint runs fn under a named savepoint when ctx carries a transaction, so a
// rejected statement leaves the outer transaction usable. Without a transaction
// fn runs directly against db.
func Savepoint(ctx context.Context, db *sql.DB, name string, fn func(q DBTX) error) error {
	tx, ok := From(ctx)
	if !ok {
		return fn(db)
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint %s: %w", name, err)
	}
	if err := fn(tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (savepoint rollback: %v)", err, rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}
