package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no rows", fmt.Errorf("failed to get subject: %w", pgx.ErrNoRows), false},
		{"deadline", fmt.Errorf("failed to get teacher: %w", context.DeadlineExceeded), false},
		{"cancelled", context.Canceled, false},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"syntax", &pgconn.PgError{Code: "42601"}, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"admin shutdown", fmt.Errorf("failed to check teaching assignment: %w", &pgconn.PgError{Code: "57P01"}), true},
		{"dial", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}

func TestMarkUnavailable(t *testing.T) {
	refused := errors.New("dial tcp: connection refused")
	err := MarkUnavailable(fmt.Errorf("failed to get student: %w", refused))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, refused)

	// Already marked errors are not wrapped twice.
	assert.Same(t, err, MarkUnavailable(err))

	fk := &pgconn.PgError{Code: "23503"}
	assert.Same(t, error(fk), MarkUnavailable(fk))
	assert.NoError(t, MarkUnavailable(nil))
}
