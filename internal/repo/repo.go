package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repo runs queries against the database, or against a transaction when bound with WithTx.
type Repo struct {
	DB *sql.DB
	tx *sql.Tx
}

var ErrNotFound = errors.New("not found")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// WithTx returns a copy of the repo whose statements run inside tx.
func (r Repo) WithTx(tx *sql.Tx) Repo {
	return Repo{DB: r.DB, tx: tx}
}

func (r Repo) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.DB
}

// IsUnavailable reports whether err is a transient store fault worth retrying.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_FULL:
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return nullable(*v)
}

func ptrFromNull(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

type updateSet struct {
	fields []string
	args   []any
}

func (u *updateSet) set(column string, value any) {
	u.fields = append(u.fields, column+"=?")
	u.args = append(u.args, value)
}

func (r Repo) applyUpdate(ctx context.Context, table, id string, u updateSet) error {
	if len(u.fields) == 0 {
		return nil
	}
	args := append(u.args, id)
	res, err := r.q().ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s WHERE id=?`, table, strings.Join(u.fields, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.q().ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=?`, table), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(clauses, " AND ")
}
