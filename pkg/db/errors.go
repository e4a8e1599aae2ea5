package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation  = "23505"
	sqliteUniqueFailed = "UNIQUE constraint failed:"
)

// IsUniqueViolation reports whether err is a unique constraint violation raised by
// Postgres (pgx or lib/pq) or SQLite. When constraintName is given the violation
// must reference it. SQLite names only the indexed columns, so callers also pass
// the qualified column list ("waybills.purchase_id"); without it a named check
// never matches on SQLite.
func IsUniqueViolation(err error, constraintName string, columns ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgxErr.ConstraintName == constraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniqueFailed); idx >= 0 {
		if constraintName == "" {
			return true
		}
		failed := strings.TrimSpace(msg[idx+len(sqliteUniqueFailed):])
		return len(columns) > 0 && failed == strings.Join(columns, ", ")
	}
	if !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
