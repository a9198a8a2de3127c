package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store implements repository.Store on Postgres. A zero db means every call
// runs against the pool; inside Atomic all repos share one transaction.
type Store struct {
	pool *pgxpool.Pool
	db   DB
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) handle() DB {
	if s.db != nil {
		return s.db
	}
	return s.pool
}

func (s *Store) Showtimes() repository.ShowtimeRepo   { return &ShowtimeRepo{db: s.handle()} }
func (s *Store) Seats() repository.SeatRepo           { return &SeatRepo{db: s.handle()} }
func (s *Store) Bookings() repository.BookingRepo     { return &BookingRepo{db: s.handle()} }
func (s *Store) Promotions() repository.PromotionRepo { return &PromotionRepo{db: s.handle()} }
func (s *Store) Theatres() repository.TheatreRepo     { return &TheatreRepo{db: s.handle()} }

// maxTxAttempts bounds the serialization-failure retries per Atomic call.
const maxTxAttempts = 3

// Atomic runs fn inside one serializable transaction. Nested calls join the
// surrounding transaction. Serialization failures and deadlocks abort the
// whole transaction, so the unit is retried from scratch, a bounded number
// of times; fn must therefore be safe to re-run.
func (s *Store) Atomic(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	if s.db != nil {
		return fn(ctx, s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}

	return err
}

func (s *Store) runTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, &Store{pool: s.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
