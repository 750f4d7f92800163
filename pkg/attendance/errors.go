package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nsut-attendance/backend/pkg/db"
)

var (
	// ErrInvalidInput marks requests rejected before the store is touched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden marks callers whose role or identity does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownReference marks writes naming a student, subject or teacher that does not exist.
	ErrUnknownReference = errors.New("unknown student, subject or teacher")
	// ErrStoreUnavailable marks failures to reach or use the database.
	ErrStoreUnavailable = fmt.Errorf("attendance store unavailable: %w", db.ErrUnavailable)
	// ErrWriteFailed wraps every failed replace; nothing was committed.
	ErrWriteFailed = errors.New("failed to save attendance")
)

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Fields map[string]string // field -> reason
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Postgres SQLSTATE codes the store maps onto ledger errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgInvalidDatetime     = "22007"
	pgDatetimeOverflow    = "22008"
)

// classify maps a store error onto the ledger's error taxonomy. Context errors
// and unrecognised server errors pass through unchanged.
func classify(err error) error {
	if db.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
		case pgUniqueViolation, pgCheckViolation, pgInvalidDatetime, pgDatetimeOverflow:
			return fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}
