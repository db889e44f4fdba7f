// Package dbx holds the database/sql abstractions shared by repositories.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is what a repository needs to run queries. *sql.DB and *sql.Tx both
// implement it, so the same repository works inside or outside a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction on db. A nil result commits. An error or
// a panic rolls back; the panic is re-raised afterwards. When the rollback
// itself fails, its error is joined to fn's so both stay visible to
// errors.Is.
//
// Registration uses it to keep the username check and the insert atomic:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//		repo := manager.Users(tx)
//		if _, err := repo.GetUserByLogin(ctx, name); err == nil {
//			return common.ErrDuplicateUsername
//		}
//		_, err := repo.Create(ctx, &models.User{UserName: name, PasswordHash: hash})
//		return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		p := recover()
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && p == nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
