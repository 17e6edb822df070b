package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestErrorReason(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reason    string
		retryable bool
	}{
		{name: "nil", err: nil, reason: "", retryable: false},
		{name: "deadline", err: fmt.Errorf("upsert: %w", context.DeadlineExceeded), reason: ErrorReasonDeadlineExceeded, retryable: true},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, reason: ErrorReasonLockTimeout, retryable: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, reason: ErrorReasonSerializationFailure, retryable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, reason: ErrorReasonSerializationFailure, retryable: true},
		{name: "unique pg", err: &pgconn.PgError{Code: "23505"}, reason: ErrorReasonUniqueViolation, retryable: false},
		{name: "unique gorm", err: gorm.ErrDuplicatedKey, reason: ErrorReasonUniqueViolation, retryable: false},
		{name: "unique sqlite", err: errors.New("UNIQUE constraint failed: events.id"), reason: ErrorReasonUniqueViolation, retryable: false},
		{name: "connection", err: &pgconn.PgError{Code: "08006"}, reason: ErrorReasonConnection, retryable: true},
		{name: "other", err: errors.New("boom"), reason: ErrorReasonUnknown, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorReason(tt.err); got != tt.reason {
				t.Fatalf("expected reason %q, got %q", tt.reason, got)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Fatalf("expected retryable %v, got %v", tt.retryable, got)
			}
		})
	}
}

func TestDialect(t *testing.T) {
	for _, typ := range []string{"postgres", "sqlite"} {
		if _, err := Dialect(Config{Type: typ}); err != nil {
			t.Fatalf("dialect %s: %v", typ, err)
		}
	}
	if _, err := Dialect(Config{Type: "mysql"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
