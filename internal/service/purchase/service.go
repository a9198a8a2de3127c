// Package purchase turns a valid hold into a booking. Selling the seats,
// checking the promo code, and appending the ledger record happen as one
// atomic unit; confirmation dispatch and cache invalidation run only after
// that unit commits.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/notify"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
	"github.com/bulldogcinemas/cinema-go/internal/uow"
)

type Service struct {
	store    repository.Store
	cache    *redisrepo.Cache
	pubsub   *redisrepo.ShowtimesPubSub
	notifier notify.Notifier
	logger   *slog.Logger
	uow      *uow.UoW
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimesPubSub,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		pubsub:   pubsub,
		notifier: notifier,
		logger:   logger,
		uow:      uow.NewUoW(store),
	}
}

type Input struct {
	ShowtimeID    uuid.UUID
	HoldID        uuid.UUID
	UserID        uuid.UUID
	Seats         []domain.SeatRef
	TotalCents    int
	PaymentLast4  string
	PromoCode     string
	AgeCategories []string
}

// Purchase sells every seat in the input under its hold and appends the
// booking. Steps: sweep lapsed holds, flip each seat held->sold (guarded by
// hold ownership and expiry), verify the promo code, write the ledger record.
// All of it commits together or none of it does; a seat that fails after
// others succeeded leaves those others exactly as they were — still held.
func (s *Service) Purchase(ctx context.Context, in Input) (*domain.Booking, error) {
	const op = "service.purchase.Purchase"

	if len(in.Seats) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatsSelected)
	}

	if in.HoldID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidHold)
	}

	if len(in.AgeCategories) > 0 && len(in.AgeCategories) != len(in.Seats) {
		return nil, fmt.Errorf("%s: %w", op, ErrBadAgeCategories)
	}

	st, err := s.store.Showtimes().Get(ctx, in.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking := &domain.Booking{
		ID:            uuid.New(),
		UserID:        in.UserID,
		ShowtimeID:    st.ID,
		MovieTitle:    st.MovieTitle,
		TheatreName:   st.TheatreName,
		Showroom:      st.Showroom,
		StartTime:     st.StartTime,
		Seats:         in.Seats,
		TicketCount:   len(in.Seats),
		AgeCategories: in.AgeCategories,
		TotalCents:    in.TotalCents,
		PaymentLast4:  in.PaymentLast4,
		PromoCode:     in.PromoCode,
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		if _, err := tx.Seats().ReleaseExpired(ctx, in.ShowtimeID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		for _, ref := range in.Seats {
			if err := tx.Seats().Sell(ctx, in.ShowtimeID, ref, in.HoldID); err != nil {
				return fmt.Errorf("%s: %w", op, sellConflict(ref, err))
			}
		}

		if in.PromoCode != "" {
			if err := s.checkPromo(ctx, tx, in, booking); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		} else if err := s.verifyTotal(in, booking, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := tx.Bookings().Insert(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrPromoUsed) {
				return fmt.Errorf("%s: %w", op, ErrPromoUsed)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.afterPurchase(ctx, booking)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (s *Service) checkPromo(
	ctx context.Context,
	tx repository.Store,
	in Input,
	booking *domain.Booking,
) error {
	promo, err := tx.Promotions().Get(ctx, in.PromoCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPromoNotFound
		}
		return err
	}

	if !promo.ActiveAt(time.Now()) {
		return ErrPromoInactive
	}

	// Store the canonical code. Lookup is case-insensitive, so persisting the
	// raw client spelling would let "summer10" and "SUMMER10" slip past the
	// used-check and the ledger's unique index as two different codes.
	booking.PromoCode = promo.Code

	used, err := tx.Bookings().PromoUsed(ctx, in.UserID, promo.Code)
	if err != nil {
		return err
	}
	if used {
		return ErrPromoUsed
	}

	return s.verifyTotal(in, booking, promo)
}

// verifyTotal recomputes the total from the age categories when the client
// supplied them; a missing breakdown falls back to trusting the client total,
// which is what the legacy clients expect.
func (s *Service) verifyTotal(in Input, booking *domain.Booking, promo *domain.Promotion) error {
	if len(in.AgeCategories) == 0 {
		return nil
	}

	expected, err := domain.PriceForCategories(in.AgeCategories)
	if err != nil {
		return ErrBadAgeCategories
	}

	if promo != nil {
		expected = domain.ApplyDiscount(expected, *promo)
	}

	if expected != in.TotalCents {
		return ErrTotalMismatch
	}

	return nil
}

// afterPurchase runs once the transaction is committed: cache and pubsub
// first, then the fire-and-forget confirmation. The notification goroutine
// owns its own timeout; a failed publish is logged and dropped, never
// surfaced to the purchase caller.
func (s *Service) afterPurchase(ctx context.Context, booking *domain.Booking) {
	if s.cache != nil {
		_ = s.cache.InvalidateShowtime(ctx, booking.ShowtimeID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishShowtimeChanged(ctx, booking.ShowtimeID)
	}

	if s.notifier == nil {
		return
	}

	labels := make([]string, 0, len(booking.Seats))
	for _, ref := range booking.Seats {
		labels = append(labels, ref.Code())
	}

	ev := notify.BookingConfirmation{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		MovieTitle:  booking.MovieTitle,
		TheatreName: booking.TheatreName,
		Showroom:    booking.Showroom,
		StartTime:   booking.StartTime.Format(time.RFC3339),
		SeatLabels:  labels,
		TicketCount: booking.TicketCount,
		TotalCents:  booking.TotalCents,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.BookingConfirmed(ctx, ev); err != nil && s.logger != nil {
			s.logger.Error("booking confirmation dispatch failed",
				"booking_id", booking.ID, "error", err)
		}
	}()
}

func sellConflict(ref domain.SeatRef, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return SeatSaleError{Seat: ref, Reason: "seat does not exist"}
	case errors.Is(err, repository.ErrSeatSold):
		return SeatSaleError{Seat: ref, Reason: "already sold"}
	case errors.Is(err, repository.ErrHoldExpired):
		return SeatSaleError{Seat: ref, Reason: "hold expired"}
	case errors.Is(err, repository.ErrSeatNotHeld):
		return SeatSaleError{Seat: ref, Reason: "not held by this hold"}
	default:
		return err
	}
}
