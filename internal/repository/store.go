package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

// Store is the storage handle injected into the services. Implementations:
// postgres (production) and memory (tests, dev mode).
type Store interface {
	Showtimes() ShowtimeRepo
	Seats() SeatRepo
	Bookings() BookingRepo
	Promotions() PromotionRepo
	Theatres() TheatreRepo

	// Atomic runs fn against a store whose writes become visible together on
	// return, or not at all when fn fails. Purchase depends on this.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type ShowtimeRepo interface {
	Create(ctx context.Context, st *domain.Showtime, seats []domain.Seat) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Showtime, error)
	Seats(ctx context.Context, id uuid.UUID) ([]domain.Seat, error)
	// SeatsByRef returns the current records for the requested seats only.
	// Seats missing from the showtime are simply absent from the result.
	SeatsByRef(ctx context.Context, id uuid.UUID, refs []domain.SeatRef) ([]domain.Seat, error)
	Counts(ctx context.Context, id uuid.UUID) (*domain.ShowtimeCounts, error)
}

// SeatRepo is the single-seat conditional transition primitive beneath the
// hold manager and the purchase flow. Every method is atomic with respect to
// concurrent callers targeting the same seat.
type SeatRepo interface {
	// Claim flips one seat to held iff it is available, or held with a lapsed
	// expiry, or already held by this same holdID and unexpired (so retries
	// re-confirm instead of conflicting).
	//
	// Returns ErrSeatNotFound, ErrSeatSold, or ErrSeatHeld on failure.
	Claim(ctx context.Context, showtimeID uuid.UUID, ref domain.SeatRef, holdID uuid.UUID, until time.Time) error

	// Sell flips one seat to sold iff it is currently held by holdID and the
	// hold has not expired. No side effect on failure.
	//
	// Returns ErrSeatNotFound, ErrSeatSold, ErrHoldExpired, or ErrSeatNotHeld.
	Sell(ctx context.Context, showtimeID uuid.UUID, ref domain.SeatRef, holdID uuid.UUID) error

	// MarkSold sets seats to sold without any hold precondition. Legacy direct
	// booking only; the hold-based flow never calls it.
	MarkSold(ctx context.Context, showtimeID uuid.UUID, refs []domain.SeatRef) error

	// ReleaseHold returns every seat held by holdID to available. Releasing a
	// hold with no matching seats is a no-op.
	ReleaseHold(ctx context.Context, showtimeID uuid.UUID, holdID uuid.UUID) (int64, error)

	// ReleaseExpired resets every held seat of one showtime whose expiry has
	// passed.
	ReleaseExpired(ctx context.Context, showtimeID uuid.UUID) (int64, error)

	// ReleaseAllExpired sweeps lapsed holds across every showtime. Used by the
	// optional background sweeper; the lazy per-showtime sweep is authoritative.
	ReleaseAllExpired(ctx context.Context) (int64, error)
}

type BookingRepo interface {
	// Insert appends a booking. Returns ErrPromoUsed when the user already has
	// a booking with the same promo code.
	Insert(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	PromoUsed(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	// BookedSeatKeys returns the SeatRef keys of every seat referenced by an
	// existing booking for the showtime. Legacy direct-booking pre-check.
	BookedSeatKeys(ctx context.Context, showtimeID uuid.UUID) (map[string]struct{}, error)
}

type PromotionRepo interface {
	Create(ctx context.Context, p *domain.Promotion) error
	Get(ctx context.Context, code string) (*domain.Promotion, error)
}

type TheatreRepo interface {
	Create(ctx context.Context, t *domain.Theatre) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Theatre, error)
}
