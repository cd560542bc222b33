package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const sqlStateUniqueViolation = "23505"

// ConstraintOneAcceptedToken is the partial index allowing a single accepted
// token per service request.
const ConstraintOneAcceptedToken = "uq_notification_tokens_one_accepted"

// IsUniqueViolation reports whether err is a unique constraint failure. A
// non-empty constraint narrows the match to that constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation &&
			(constraint == "" || pgErr.ConstraintName == constraint)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
