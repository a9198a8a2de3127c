// Package booking owns the ledger queries and the legacy direct-booking
// entry point that predates the hold manager.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
	"github.com/bulldogcinemas/cinema-go/internal/uow"
)

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.ShowtimesPubSub
	uow    *uow.UoW
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimesPubSub,
) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
	}
}

type DirectInput struct {
	UserID        uuid.UUID
	ShowtimeID    uuid.UUID
	Seats         []domain.SeatRef
	MovieTitle    string
	TicketCount   int
	AgeCategories []string
	TotalCents    int
	PaymentLast4  string
	PromoCode     string
}

// DirectBook is the legacy path: no hold, no claim step. It checks that none
// of the requested seats appear in an existing booking for the showtime, then
// marks them sold and appends the booking.
//
// The existence check runs outside the write transaction, so two direct
// bookings racing on the same seat can both pass the check. That window is a
// documented property of this path, kept for callers that depend on it; the
// hold-based flow is the one with the exclusivity guarantee.
func (s *Service) DirectBook(ctx context.Context, in DirectInput) (*domain.Booking, error) {
	const op = "service.booking.DirectBook"

	if len(in.Seats) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatsSelected)
	}

	st, err := s.store.Showtimes().Get(ctx, in.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booked, err := s.store.Bookings().BookedSeatKeys(ctx, in.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, ref := range in.Seats {
		if _, taken := booked[ref.Key()]; taken {
			return nil, fmt.Errorf("%s: %w", op, SeatBookedError{Seat: ref})
		}
	}

	// Canonical form, matching how promotions are stored and checked.
	promoCode := strings.ToUpper(strings.TrimSpace(in.PromoCode))

	if promoCode != "" {
		used, err := s.store.Bookings().PromoUsed(ctx, in.UserID, promoCode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if used {
			return nil, fmt.Errorf("%s: %w", op, ErrPromoUsed)
		}
	}

	title := in.MovieTitle
	if title == "" {
		title = st.MovieTitle
	}

	count := in.TicketCount
	if count <= 0 {
		count = len(in.Seats)
	}

	b := &domain.Booking{
		ID:            uuid.New(),
		UserID:        in.UserID,
		ShowtimeID:    st.ID,
		MovieTitle:    title,
		TheatreName:   st.TheatreName,
		Showroom:      st.Showroom,
		StartTime:     st.StartTime,
		Seats:         in.Seats,
		TicketCount:   count,
		AgeCategories: in.AgeCategories,
		TotalCents:    in.TotalCents,
		PaymentLast4:  in.PaymentLast4,
		PromoCode:     promoCode,
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		if err := tx.Seats().MarkSold(ctx, in.ShowtimeID, in.Seats); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := tx.Bookings().Insert(ctx, b); err != nil {
			if errors.Is(err, repository.ErrPromoUsed) {
				return fmt.Errorf("%s: %w", op, ErrPromoUsed)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateShowtime(ctx, in.ShowtimeID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishShowtimeChanged(ctx, in.ShowtimeID)
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const op = "service.booking.ListForUser"

	out, err := s.store.Bookings().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
