// Package repository holds the MySQL implementations of the stores used by
// services and handlers.  Repositories translate driver errors into the
// sentinels in package model so higher layers never inspect SQL errors:
// sql.ErrNoRows becomes model.ErrNotFound and a duplicate-key violation
// becomes model.ErrDuplicateEmail or model.ErrDuplicateSlug depending on
// the table.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlNoReferenced   = 1452 // ER_NO_REFERENCED_ROW_2
)

// isDuplicateKey reports whether err is a unique index violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isMissingReference reports whether err is a foreign key violation on
// insert or update.
func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferenced
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// dbtx is the subset of *sql.DB and *sql.Tx the repositories need, so the
// same methods run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
