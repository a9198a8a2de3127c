package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

func seedShowtime(t *testing.T, s *Store) uuid.UUID {
	t.Helper()

	st := &domain.Showtime{
		ID:          uuid.New(),
		MovieID:     uuid.New(),
		MovieTitle:  "Heat",
		TheatreName: "Downtown",
		Showroom:    "Room 1",
		StartTime:   time.Now().Add(24 * time.Hour),
	}
	seats := []domain.Seat{
		{Row: "A", Number: 1, Status: domain.SeatAvailable},
		{Row: "A", Number: 2, Status: domain.SeatAvailable},
		{Row: "B", Number: 1, Status: domain.SeatAvailable},
		{Row: "B", Number: 2, Status: domain.SeatAvailable},
	}

	require.NoError(t, s.Showtimes().Create(context.Background(), st, seats))

	return st.ID
}

func seatByRef(t *testing.T, s *Store, showtimeID uuid.UUID, ref domain.SeatRef) domain.Seat {
	t.Helper()

	seats, err := s.Showtimes().SeatsByRef(context.Background(), showtimeID, []domain.SeatRef{ref})
	require.NoError(t, err)
	require.Len(t, seats, 1)

	return seats[0]
}

func TestClaim_OnlyOneWinnerUnderContention(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ref := domain.SeatRef{Row: "A", Number: 1}
	until := time.Now().Add(10 * time.Minute)

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan uuid.UUID, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holdID := uuid.New()
			if err := s.Seats().Claim(context.Background(), showtimeID, ref, holdID, until); err == nil {
				wins <- holdID
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []uuid.UUID
	for id := range wins {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1)

	seat := seatByRef(t, s, showtimeID, ref)
	assert.Equal(t, domain.SeatHeld, seat.Status)
	require.NotNil(t, seat.HeldBy)
	assert.Equal(t, winners[0], *seat.HeldBy)
}

func TestClaim_ExpiredHoldIsReclaimable(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ref := domain.SeatRef{Row: "A", Number: 1}
	ctx := context.Background()

	first := uuid.New()
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, first, time.Now().Add(-time.Second)))

	second := uuid.New()
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, second, time.Now().Add(10*time.Minute)))

	seat := seatByRef(t, s, showtimeID, ref)
	require.NotNil(t, seat.HeldBy)
	assert.Equal(t, second, *seat.HeldBy)
}

func TestClaim_SameHoldRetryRefreshes(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ref := domain.SeatRef{Row: "A", Number: 1}
	ctx := context.Background()

	holdID := uuid.New()
	firstUntil := time.Now().Add(5 * time.Minute)
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, holdID, firstUntil))

	laterUntil := time.Now().Add(15 * time.Minute)
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, holdID, laterUntil))

	seat := seatByRef(t, s, showtimeID, ref)
	require.NotNil(t, seat.HeldUntil)
	assert.WithinDuration(t, laterUntil, *seat.HeldUntil, time.Second)
}

func TestClaim_LiveHoldBlocksOthers(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ref := domain.SeatRef{Row: "A", Number: 1}
	ctx := context.Background()

	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, uuid.New(), time.Now().Add(10*time.Minute)))

	err := s.Seats().Claim(ctx, showtimeID, ref, uuid.New(), time.Now().Add(10*time.Minute))
	assert.ErrorIs(t, err, repository.ErrSeatHeld)
}

func TestClaim_CaseInsensitiveRow(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	require.NoError(t, s.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "a", Number: 1}, uuid.New(), time.Now().Add(10*time.Minute)))

	seat := seatByRef(t, s, showtimeID, domain.SeatRef{Row: "A", Number: 1})
	assert.Equal(t, domain.SeatHeld, seat.Status)
}

func TestSell_RequiresLiveOwnHold(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	a1 := domain.SeatRef{Row: "A", Number: 1}
	a2 := domain.SeatRef{Row: "A", Number: 2}
	b1 := domain.SeatRef{Row: "B", Number: 1}

	// not held at all
	err := s.Seats().Sell(ctx, showtimeID, a1, uuid.New())
	assert.ErrorIs(t, err, repository.ErrSeatNotHeld)

	// held by somebody else
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, a1, uuid.New(), time.Now().Add(10*time.Minute)))
	err = s.Seats().Sell(ctx, showtimeID, a1, uuid.New())
	assert.ErrorIs(t, err, repository.ErrSeatNotHeld)

	// own hold, but lapsed
	holdID := uuid.New()
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, a2, holdID, time.Now().Add(-time.Second)))
	err = s.Seats().Sell(ctx, showtimeID, a2, holdID)
	assert.ErrorIs(t, err, repository.ErrHoldExpired)

	// own live hold sells, and sold is terminal
	holdID2 := uuid.New()
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, b1, holdID2, time.Now().Add(10*time.Minute)))
	require.NoError(t, s.Seats().Sell(ctx, showtimeID, b1, holdID2))

	err = s.Seats().Claim(ctx, showtimeID, b1, uuid.New(), time.Now().Add(10*time.Minute))
	assert.ErrorIs(t, err, repository.ErrSeatSold)
	err = s.Seats().Sell(ctx, showtimeID, b1, holdID2)
	assert.ErrorIs(t, err, repository.ErrSeatSold)
}

func TestReleaseHold_Idempotent(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	holdID := uuid.New()
	until := time.Now().Add(10 * time.Minute)
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, domain.SeatRef{Row: "A", Number: 1}, holdID, until))
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, domain.SeatRef{Row: "A", Number: 2}, holdID, until))

	released, err := s.Seats().ReleaseHold(ctx, showtimeID, holdID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, released)

	released, err = s.Seats().ReleaseHold(ctx, showtimeID, holdID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, released)

	seat := seatByRef(t, s, showtimeID, domain.SeatRef{Row: "A", Number: 1})
	assert.Equal(t, domain.SeatAvailable, seat.Status)
	assert.Nil(t, seat.HeldBy)
}

func TestReleaseExpired_OnlyTouchesLapsedHolds(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	require.NoError(t, s.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 1}, uuid.New(), time.Now().Add(-time.Second)))
	require.NoError(t, s.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 2}, uuid.New(), time.Now().Add(10*time.Minute)))

	released, err := s.Seats().ReleaseExpired(ctx, showtimeID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)

	assert.Equal(t, domain.SeatAvailable, seatByRef(t, s, showtimeID, domain.SeatRef{Row: "A", Number: 1}).Status)
	assert.Equal(t, domain.SeatHeld, seatByRef(t, s, showtimeID, domain.SeatRef{Row: "A", Number: 2}).Status)
}

func TestCounts_ExpiredHeldCountsAsAvailable(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	require.NoError(t, s.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 1}, uuid.New(), time.Now().Add(-time.Second)))
	require.NoError(t, s.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 2}, uuid.New(), time.Now().Add(10*time.Minute)))
	require.NoError(t, s.Seats().MarkSold(ctx, showtimeID, []domain.SeatRef{{Row: "B", Number: 1}}))

	counts, err := s.Showtimes().Counts(ctx, showtimeID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, counts.Total)
	assert.EqualValues(t, 2, counts.Available)
	assert.EqualValues(t, 1, counts.Held)
	assert.EqualValues(t, 1, counts.Sold)
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	holdID := uuid.New()
	ref := domain.SeatRef{Row: "A", Number: 1}
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, holdID, time.Now().Add(10*time.Minute)))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Seats().Sell(ctx, showtimeID, ref, holdID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// the sale inside the failed transaction never became visible
	seat := seatByRef(t, s, showtimeID, ref)
	assert.Equal(t, domain.SeatHeld, seat.Status)
	require.NotNil(t, seat.HeldBy)
	assert.Equal(t, holdID, *seat.HeldBy)
}

func TestAtomic_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	holdID := uuid.New()
	ref := domain.SeatRef{Row: "A", Number: 1}
	require.NoError(t, s.Seats().Claim(ctx, showtimeID, ref, holdID, time.Now().Add(10*time.Minute)))

	err := s.Atomic(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Seats().Sell(ctx, showtimeID, ref, holdID); err != nil {
			return err
		}
		return tx.Bookings().Insert(ctx, &domain.Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			ShowtimeID: showtimeID,
			Seats:      []domain.SeatRef{ref},
			TotalCents: 1500,
		})
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SeatSold, seatByRef(t, s, showtimeID, ref).Status)

	keys, err := s.Bookings().BookedSeatKeys(ctx, showtimeID)
	require.NoError(t, err)
	assert.Contains(t, keys, ref.Key())
}

func TestBookings_PromoUsedOncePerUser(t *testing.T) {
	s := NewStore()
	showtimeID := seedShowtime(t, s)
	ctx := context.Background()

	userID := uuid.New()
	mk := func(user uuid.UUID) *domain.Booking {
		return &domain.Booking{
			ID:         uuid.New(),
			UserID:     user,
			ShowtimeID: showtimeID,
			Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
			PromoCode:  "SUMMER10",
		}
	}

	require.NoError(t, s.Bookings().Insert(ctx, mk(userID)))

	err := s.Bookings().Insert(ctx, mk(userID))
	assert.ErrorIs(t, err, repository.ErrPromoUsed)

	// a different user may still use the code
	require.NoError(t, s.Bookings().Insert(ctx, mk(uuid.New())))

	used, err := s.Bookings().PromoUsed(ctx, userID, "summer10")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestReleaseAllExpired_SweepsEveryShowtime(t *testing.T) {
	s := NewStore()
	first := seedShowtime(t, s)
	second := seedShowtime(t, s)
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	require.NoError(t, s.Seats().Claim(ctx, first, domain.SeatRef{Row: "A", Number: 1}, uuid.New(), past))
	require.NoError(t, s.Seats().Claim(ctx, second, domain.SeatRef{Row: "B", Number: 2}, uuid.New(), past))

	released, err := s.Seats().ReleaseAllExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, released)
}
