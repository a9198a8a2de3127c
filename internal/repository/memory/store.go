// Package memory implements repository.Store on an in-process keyed map,
// (row, number) -> seat, guarded by a per-showtime mutex. It backs the test
// suite and the DB-less dev mode; the transition guards are the same ones the
// postgres store expresses in SQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type Store struct {
	mu       sync.RWMutex // readers/writers of state; Atomic takes it exclusively
	ledgerMu sync.Mutex   // serializes non-transactional ledger writes
	state    *state
	inTx     bool
}

type state struct {
	showtimes  map[uuid.UUID]*showtimeState
	bookings   []*domain.Booking
	bookingIdx map[uuid.UUID]*domain.Booking
	promoUse   map[string]struct{} // userID|CODE
	promotions map[string]*domain.Promotion
	theatres   map[uuid.UUID]*domain.Theatre
}

type showtimeState struct {
	mu    sync.Mutex
	meta  domain.Showtime
	seats map[string]*domain.Seat
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		showtimes:  make(map[uuid.UUID]*showtimeState),
		bookingIdx: make(map[uuid.UUID]*domain.Booking),
		promoUse:   make(map[string]struct{}),
		promotions: make(map[string]*domain.Promotion),
		theatres:   make(map[uuid.UUID]*domain.Theatre),
	}
}

func (s *Store) Showtimes() repository.ShowtimeRepo   { return &ShowtimeRepo{s: s} }
func (s *Store) Seats() repository.SeatRepo           { return &SeatRepo{s: s} }
func (s *Store) Bookings() repository.BookingRepo     { return &BookingRepo{s: s} }
func (s *Store) Promotions() repository.PromotionRepo { return &PromotionRepo{s: s} }
func (s *Store) Theatres() repository.TheatreRepo     { return &TheatreRepo{s: s} }

// Atomic takes the store-wide write lock, runs fn against a deep copy of the
// state, and swaps the copy in only when fn succeeds. Failure leaves the
// original state untouched, which is exactly the all-or-nothing the purchase
// flow needs. Nested calls join the surrounding transaction.
func (s *Store) Atomic(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.state.clone()

	if err := fn(ctx, &Store{state: clone, inTx: true}); err != nil {
		return err
	}

	s.state = clone

	return nil
}

// lockShowtime pins the showtime for a single operation. Inside a transaction
// the store-wide lock already excludes everyone else, so no locking is needed.
func (s *Store) lockShowtime(id uuid.UUID) (*showtimeState, func(), error) {
	if s.inTx {
		st, ok := s.state.showtimes[id]
		if !ok {
			return nil, nil, repository.ErrNotFound
		}
		return st, func() {}, nil
	}

	s.mu.RLock()

	st, ok := s.state.showtimes[id]
	if !ok {
		s.mu.RUnlock()
		return nil, nil, repository.ErrNotFound
	}

	st.mu.Lock()

	return st, func() {
		st.mu.Unlock()
		s.mu.RUnlock()
	}, nil
}

// lockLedger pins the ledger (bookings, promotions, theatres) for one write.
func (s *Store) lockLedger() func() {
	if s.inTx {
		return func() {}
	}

	s.mu.RLock()
	s.ledgerMu.Lock()

	return func() {
		s.ledgerMu.Unlock()
		s.mu.RUnlock()
	}
}

func (st *state) clone() *state {
	cp := newState()

	for id, sh := range st.showtimes {
		seats := make(map[string]*domain.Seat, len(sh.seats))
		for k, seat := range sh.seats {
			c := *seat
			if seat.HeldBy != nil {
				v := *seat.HeldBy
				c.HeldBy = &v
			}
			if seat.HeldUntil != nil {
				v := *seat.HeldUntil
				c.HeldUntil = &v
			}
			seats[k] = &c
		}
		cp.showtimes[id] = &showtimeState{meta: sh.meta, seats: seats}
	}

	// Booking records are immutable once appended; sharing them is safe.
	cp.bookings = append(cp.bookings, st.bookings...)
	for id, b := range st.bookingIdx {
		cp.bookingIdx[id] = b
	}
	for k := range st.promoUse {
		cp.promoUse[k] = struct{}{}
	}
	for k, p := range st.promotions {
		cp.promotions[k] = p
	}
	for k, t := range st.theatres {
		cp.theatres[k] = t
	}

	return cp
}

func promoKey(userID uuid.UUID, code string) string {
	return userID.String() + "|" + code
}

func copySeat(s *domain.Seat) domain.Seat {
	c := *s
	if s.HeldBy != nil {
		v := *s.HeldBy
		c.HeldBy = &v
	}
	if s.HeldUntil != nil {
		v := *s.HeldUntil
		c.HeldUntil = &v
	}
	return c
}

func holdSeat(seat *domain.Seat, holdID uuid.UUID, until time.Time) {
	seat.Status = domain.SeatHeld
	id := holdID
	seat.HeldBy = &id
	u := until
	seat.HeldUntil = &u
}

func freeSeat(seat *domain.Seat) {
	seat.Status = domain.SeatAvailable
	seat.HeldBy = nil
	seat.HeldUntil = nil
}

func sellSeat(seat *domain.Seat) {
	seat.Status = domain.SeatSold
	seat.HeldBy = nil
	seat.HeldUntil = nil
}
