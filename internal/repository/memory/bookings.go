package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type BookingRepo struct {
	s *Store
}

func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "memory.BookingRepo.Insert"

	unlock := r.s.lockLedger()
	defer unlock()

	if b.PromoCode != "" {
		key := promoKey(b.UserID, strings.ToUpper(b.PromoCode))
		if _, used := r.s.state.promoUse[key]; used {
			return fmt.Errorf("%s: %w", op, repository.ErrPromoUsed)
		}
		r.s.state.promoUse[key] = struct{}{}
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	cp := *b
	cp.Seats = append([]domain.SeatRef(nil), b.Seats...)
	cp.AgeCategories = append([]string(nil), b.AgeCategories...)

	r.s.state.bookings = append(r.s.state.bookings, &cp)
	r.s.state.bookingIdx[cp.ID] = &cp

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.BookingRepo.Get"

	unlock := r.s.lockLedger()
	defer unlock()

	b, ok := r.s.state.bookingIdx[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	cp := *b

	return &cp, nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	unlock := r.s.lockLedger()
	defer unlock()

	var out []domain.Booking
	for i := len(r.s.state.bookings) - 1; i >= 0; i-- {
		if b := r.s.state.bookings[i]; b.UserID == userID {
			out = append(out, *b)
		}
	}

	return out, nil
}

func (r *BookingRepo) PromoUsed(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	unlock := r.s.lockLedger()
	defer unlock()

	_, used := r.s.state.promoUse[promoKey(userID, strings.ToUpper(code))]

	return used, nil
}

func (r *BookingRepo) BookedSeatKeys(
	ctx context.Context,
	showtimeID uuid.UUID,
) (map[string]struct{}, error) {
	unlock := r.s.lockLedger()
	defer unlock()

	keys := make(map[string]struct{})
	for _, b := range r.s.state.bookings {
		if b.ShowtimeID != showtimeID {
			continue
		}
		for _, ref := range b.Seats {
			keys[ref.Key()] = struct{}{}
		}
	}

	return keys, nil
}
