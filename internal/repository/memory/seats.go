package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type SeatRepo struct {
	s *Store
}

func (r *SeatRepo) Claim(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
	holdID uuid.UUID,
	until time.Time,
) error {
	const op = "memory.SeatRepo.Claim"

	st, unlock, err := r.s.lockShowtime(showtimeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	seat, ok := st.seats[ref.Key()]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrSeatNotFound)
	}

	now := time.Now()

	switch {
	case seat.Status == domain.SeatAvailable:
		holdSeat(seat, holdID, until)
	case seat.ExpiredAt(now):
		holdSeat(seat, holdID, until)
	case seat.Status == domain.SeatHeld && seat.HeldBy != nil && *seat.HeldBy == holdID:
		// retry of an already-successful claim: refresh, don't conflict
		holdSeat(seat, holdID, until)
	case seat.Status == domain.SeatSold:
		return fmt.Errorf("%s: %w", op, repository.ErrSeatSold)
	default:
		return fmt.Errorf("%s: %w", op, repository.ErrSeatHeld)
	}

	return nil
}

func (r *SeatRepo) Sell(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
	holdID uuid.UUID,
) error {
	const op = "memory.SeatRepo.Sell"

	st, unlock, err := r.s.lockShowtime(showtimeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	seat, ok := st.seats[ref.Key()]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrSeatNotFound)
	}

	now := time.Now()

	switch {
	case seat.Status == domain.SeatHeld &&
		seat.HeldBy != nil && *seat.HeldBy == holdID &&
		seat.HeldUntil != nil && seat.HeldUntil.After(now):
		sellSeat(seat)
		return nil
	case seat.Status == domain.SeatSold:
		return fmt.Errorf("%s: %w", op, repository.ErrSeatSold)
	case seat.Status == domain.SeatHeld && seat.HeldBy != nil && *seat.HeldBy == holdID:
		return fmt.Errorf("%s: %w", op, repository.ErrHoldExpired)
	default:
		return fmt.Errorf("%s: %w", op, repository.ErrSeatNotHeld)
	}
}

func (r *SeatRepo) MarkSold(
	ctx context.Context,
	showtimeID uuid.UUID,
	refs []domain.SeatRef,
) error {
	const op = "memory.SeatRepo.MarkSold"

	st, unlock, err := r.s.lockShowtime(showtimeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	for _, ref := range refs {
		seat, ok := st.seats[ref.Key()]
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrSeatNotFound)
		}
		sellSeat(seat)
	}

	return nil
}

func (r *SeatRepo) ReleaseHold(
	ctx context.Context,
	showtimeID uuid.UUID,
	holdID uuid.UUID,
) (int64, error) {
	const op = "memory.SeatRepo.ReleaseHold"

	st, unlock, err := r.s.lockShowtime(showtimeID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	var released int64
	for _, seat := range st.seats {
		if seat.Status == domain.SeatHeld && seat.HeldBy != nil && *seat.HeldBy == holdID {
			freeSeat(seat)
			released++
		}
	}

	return released, nil
}

func (r *SeatRepo) ReleaseExpired(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	const op = "memory.SeatRepo.ReleaseExpired"

	st, unlock, err := r.s.lockShowtime(showtimeID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	now := time.Now()

	var released int64
	for _, seat := range st.seats {
		if seat.ExpiredAt(now) {
			freeSeat(seat)
			released++
		}
	}

	return released, nil
}

func (r *SeatRepo) ReleaseAllExpired(ctx context.Context) (int64, error) {
	if !r.s.inTx {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}

	now := time.Now()

	var released int64
	for _, st := range r.s.state.showtimes {
		if !r.s.inTx {
			st.mu.Lock()
		}
		for _, seat := range st.seats {
			if seat.ExpiredAt(now) {
				freeSeat(seat)
				released++
			}
		}
		if !r.s.inTx {
			st.mu.Unlock()
		}
	}

	return released, nil
}
