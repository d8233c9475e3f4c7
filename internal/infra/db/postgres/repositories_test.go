package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"stayride/internal/domain/shared/rules"
)

func TestTranslateConstraintViolations(t *testing.T) {
	plain := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{
			name: "overlapping block",
			err:  fmt.Errorf("insert block: %w", &pgconn.PgError{Code: sqlstateExclusionViolation, ConstraintName: blocksNoOverlap}),
			want: rules.ErrDateConflict,
		},
		{
			name: "second pending request",
			err:  &pgconn.PgError{Code: sqlstateUniqueViolation, ConstraintName: pendingPerBookingIndex},
			want: rules.ErrDuplicatePendingRequest,
		},
		{
			name: "other unique constraint",
			err:  &pgconn.PgError{Code: sqlstateUniqueViolation, ConstraintName: "bookings_pkey"},
		},
		{name: "unrelated", err: plain, want: plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			switch {
			case tt.err == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Same(t, tt.err, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestViolatesWithoutConstraintName(t *testing.T) {
	err := &pgconn.PgError{Code: sqlstateUniqueViolation, ConstraintName: "anything"}
	assert.True(t, violates(err, sqlstateUniqueViolation, ""))
	assert.False(t, violates(err, sqlstateExclusionViolation, ""))
	assert.False(t, violates(errors.New("boom"), sqlstateUniqueViolation, ""))
}
