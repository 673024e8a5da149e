package dbx

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UniqueViolation reports whether err is a unique-constraint violation raised
// by Postgres or SQLite. When it is, the first of columns mentioned by the
// violated constraint is returned; column is empty if none matches.
func UniqueViolation(err error, columns ...string) (column string, ok bool) {
	var detail string

	var pgErr *pgconn.PgError
	var liteErr *sqlite.Error
	switch {
	case errors.As(err, &pgErr):
		if pgErr.Code != pgerrcode.UniqueViolation {
			return "", false
		}
		detail = pgErr.ConstraintName
	case errors.As(err, &liteErr):
		if liteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return "", false
		}
		// "UNIQUE constraint failed: users.email"
		detail = liteErr.Error()
	default:
		return "", false
	}

	for _, c := range columns {
		if strings.Contains(detail, c) {
			return c, true
		}
	}
	return "", true
}
