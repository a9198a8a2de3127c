package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"wrapped serialization failure",
			fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestWrapDBErr(t *testing.T) {
	assert.NoError(t, wrapDBErr("op", nil))

	assert.ErrorIs(t, wrapDBErr("op", pgx.ErrNoRows), repository.ErrNotFound)

	promoDup := &pgconn.PgError{Code: "23505", ConstraintName: "bookings_user_promo_key"}
	assert.ErrorIs(t, wrapDBErr("op", promoDup), repository.ErrPromoUsed)

	otherDup := &pgconn.PgError{Code: "23505", ConstraintName: "showtimes_pkey"}
	assert.ErrorIs(t, wrapDBErr("op", otherDup), repository.ErrConflict)

	plain := errors.New("boom")
	assert.ErrorIs(t, wrapDBErr("op", plain), plain)
}
