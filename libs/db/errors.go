package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the services branch on.
const (
	CodeInvalidText          = "22P02"
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeExclusionViolation   = "23P01"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == CodeUniqueViolation
}

// IsInvalidText reports a malformed literal, such as a bad uuid in a lookup.
func IsInvalidText(err error) bool {
	return pgCode(err) == CodeInvalidText
}

func IsExclusionViolation(err error) bool {
	return pgCode(err) == CodeExclusionViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == CodeForeignKeyViolation
}

// IsRetryable reports whether the transaction lost a serialization race and can be re-run.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	}
	return false
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
