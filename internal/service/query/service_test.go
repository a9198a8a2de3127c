package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, uuid.UUID) {
	t.Helper()

	store := memory.NewStore()
	st := &domain.Showtime{
		ID:          uuid.New(),
		MovieID:     uuid.New(),
		MovieTitle:  "Seven",
		TheatreName: "Downtown",
		Showroom:    "Room 1",
		StartTime:   time.Now().Add(24 * time.Hour),
	}
	seats := []domain.Seat{
		{Row: "A", Number: 1, Status: domain.SeatAvailable},
		{Row: "A", Number: 2, Status: domain.SeatAvailable},
		{Row: "A", Number: 3, Status: domain.SeatAvailable},
	}
	require.NoError(t, store.Showtimes().Create(context.Background(), st, seats))

	return New(store, nil), store, st.ID
}

func TestGetShowtime(t *testing.T) {
	svc, _, showtimeID := newTestService(t)

	st, err := svc.GetShowtime(context.Background(), showtimeID)
	require.NoError(t, err)
	assert.Equal(t, "Seven", st.MovieTitle)

	_, err = svc.GetShowtime(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestGetSeatMap_MasksLapsedHoldsAndTokens(t *testing.T) {
	svc, store, showtimeID := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 1}, uuid.New(), time.Now().Add(10*time.Minute)))
	require.NoError(t, store.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 2}, uuid.New(), time.Now().Add(-time.Second)))
	require.NoError(t, store.Seats().MarkSold(ctx, showtimeID,
		[]domain.SeatRef{{Row: "A", Number: 3}}))

	sm, err := svc.GetSeatMap(ctx, showtimeID)
	require.NoError(t, err)
	require.Len(t, sm.Seats, 3)

	byCode := make(map[string]domain.SeatStatus, 3)
	for _, seat := range sm.Seats {
		byCode[domain.SeatRef{Row: seat.Row, Number: seat.Number}.Code()] = seat.Status
	}

	assert.Equal(t, domain.SeatHeld, byCode["A1"])
	// lapsed hold reads as available even before any sweep ran
	assert.Equal(t, domain.SeatAvailable, byCode["A2"])
	assert.Equal(t, domain.SeatSold, byCode["A3"])
}

func TestGetAvailability(t *testing.T) {
	svc, store, showtimeID := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Seats().Claim(ctx, showtimeID,
		domain.SeatRef{Row: "A", Number: 1}, uuid.New(), time.Now().Add(10*time.Minute)))

	counts, err := svc.GetAvailability(ctx, showtimeID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts.Total)
	assert.EqualValues(t, 2, counts.Available)
	assert.EqualValues(t, 1, counts.Held)
}
