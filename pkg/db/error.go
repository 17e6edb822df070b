package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

const (
	ErrorReasonUniqueViolation      = "unique_violation"
	ErrorReasonSerializationFailure = "serialization_failure"
	ErrorReasonLockTimeout          = "db_lock_timeout"
	ErrorReasonDeadlineExceeded     = "deadline_exceeded"
	ErrorReasonConnection           = "db_connection"
	ErrorReasonUnknown              = "unknown"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if hasPGCode(err, pgUniqueViolation) {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// ErrorReason maps a storage error to a low-cardinality label.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorReasonDeadlineExceeded
	case hasPGCode(err, pgLockNotAvailable):
		return ErrorReasonLockTimeout
	case hasPGCode(err, pgSerializationFailure), hasPGCode(err, pgDeadlockDetected):
		return ErrorReasonSerializationFailure
	case IsDuplicateKeyErr(err):
		return ErrorReasonUniqueViolation
	case isConnectionErr(err):
		return ErrorReasonConnection
	default:
		return ErrorReasonUnknown
	}
}

// IsRetryable reports whether redelivering the same work may succeed.
func IsRetryable(err error) bool {
	switch ErrorReason(err) {
	case ErrorReasonDeadlineExceeded, ErrorReasonLockTimeout, ErrorReasonSerializationFailure, ErrorReasonConnection:
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isConnectionErr(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}
