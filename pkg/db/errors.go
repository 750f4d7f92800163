package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnavailable marks failures to reach or use the database.
var ErrUnavailable = errors.New("database unavailable")

// IsUnavailable reports whether err means the database could not answer:
// connection exceptions, insufficient resources, operator intervention, or
// any error that never reached the server. Context errors, pgx.ErrNoRows and
// ordinary server-side errors are not outages.
func IsUnavailable(err error) bool {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || // connection exception
			strings.HasPrefix(pgErr.Code, "53") || // insufficient resources
			strings.HasPrefix(pgErr.Code, "57") // operator intervention
	}
	return true
}

// MarkUnavailable wraps err with ErrUnavailable when IsUnavailable holds and
// returns it unchanged otherwise.
func MarkUnavailable(err error) error {
	if !IsUnavailable(err) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
