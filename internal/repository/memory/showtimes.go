package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type ShowtimeRepo struct {
	s *Store
}

func (r *ShowtimeRepo) Create(
	ctx context.Context,
	st *domain.Showtime,
	seats []domain.Seat,
) error {
	const op = "memory.ShowtimeRepo.Create"

	unlock := r.s.lockLedger()
	defer unlock()

	if _, exists := r.s.state.showtimes[st.ID]; exists {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	m := make(map[string]*domain.Seat, len(seats))
	for _, seat := range seats {
		c := seat
		key := c.Ref().Key()
		if _, dup := m[key]; dup {
			return fmt.Errorf("%s: %w", op, repository.ErrDuplicateSeat)
		}
		m[key] = &c
	}

	r.s.state.showtimes[st.ID] = &showtimeState{meta: *st, seats: m}

	return nil
}

func (r *ShowtimeRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	const op = "memory.ShowtimeRepo.Get"

	st, unlock, err := r.s.lockShowtime(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	meta := st.meta

	return &meta, nil
}

func (r *ShowtimeRepo) Seats(ctx context.Context, id uuid.UUID) ([]domain.Seat, error) {
	const op = "memory.ShowtimeRepo.Seats"

	st, unlock, err := r.s.lockShowtime(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	seats := make([]domain.Seat, 0, len(st.seats))
	for _, seat := range st.seats {
		seats = append(seats, copySeat(seat))
	}

	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})

	return seats, nil
}

func (r *ShowtimeRepo) SeatsByRef(
	ctx context.Context,
	id uuid.UUID,
	refs []domain.SeatRef,
) ([]domain.Seat, error) {
	const op = "memory.ShowtimeRepo.SeatsByRef"

	st, unlock, err := r.s.lockShowtime(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	var seats []domain.Seat
	for _, ref := range refs {
		if seat, ok := st.seats[ref.Key()]; ok {
			seats = append(seats, copySeat(seat))
		}
	}

	return seats, nil
}

func (r *ShowtimeRepo) Counts(ctx context.Context, id uuid.UUID) (*domain.ShowtimeCounts, error) {
	const op = "memory.ShowtimeRepo.Counts"

	st, unlock, err := r.s.lockShowtime(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	now := time.Now()

	var c domain.ShowtimeCounts
	for _, seat := range st.seats {
		c.Total++
		switch {
		case seat.Status == domain.SeatSold:
			c.Sold++
		case seat.Status == domain.SeatHeld && !seat.ExpiredAt(now):
			c.Held++
		default:
			// available, or held with a lapsed expiry
			c.Available++
		}
	}

	return &c, nil
}
