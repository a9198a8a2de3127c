package booking

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
		MovieTitle:  "Casablanca",
		TheatreName: "Downtown",
		Showroom:    "Room 1",
		StartTime:   time.Now().Add(24 * time.Hour),
	}
	seats := []domain.Seat{
		{Row: "A", Number: 1, Status: domain.SeatAvailable},
		{Row: "A", Number: 2, Status: domain.SeatAvailable},
		{Row: "B", Number: 1, Status: domain.SeatAvailable},
	}
	require.NoError(t, store.Showtimes().Create(context.Background(), st, seats))

	return New(store, nil, nil), store, st.ID
}

func TestDirectBook_CreatesBookingAndSellsSeats(t *testing.T) {
	svc, store, showtimeID := newTestService(t)
	ctx := context.Background()

	userID := uuid.New()
	b, err := svc.DirectBook(ctx, DirectInput{
		UserID:       userID,
		ShowtimeID:   showtimeID,
		Seats:        []domain.SeatRef{{Row: "A", Number: 1}, {Row: "A", Number: 2}},
		TotalCents:   3000,
		PaymentLast4: "4242",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, b.TicketCount)
	assert.Equal(t, "Casablanca", b.MovieTitle)
	assert.Equal(t, "Downtown", b.TheatreName)

	seats, err := store.Showtimes().SeatsByRef(ctx, showtimeID, b.Seats)
	require.NoError(t, err)
	for _, seat := range seats {
		assert.Equal(t, domain.SeatSold, seat.Status)
	}
}

func TestDirectBook_RejectsAlreadyBookedSeat(t *testing.T) {
	svc, _, showtimeID := newTestService(t)
	ctx := context.Background()

	_, err := svc.DirectBook(ctx, DirectInput{
		UserID:     uuid.New(),
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
		TotalCents: 1500,
	})
	require.NoError(t, err)

	_, err = svc.DirectBook(ctx, DirectInput{
		UserID:     uuid.New(),
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}, {Row: "B", Number: 1}},
		TotalCents: 3000,
	})

	var booked SeatBookedError
	require.ErrorAs(t, err, &booked)
	assert.Equal(t, "A1", booked.Seat.Code())
}

func TestDirectBook_PromoOncePerUser(t *testing.T) {
	svc, _, showtimeID := newTestService(t)
	ctx := context.Background()

	userID := uuid.New()
	_, err := svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
		TotalCents: 1350,
		PromoCode:  "SUMMER10",
	})
	require.NoError(t, err)

	_, err = svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 2}},
		TotalCents: 1350,
		PromoCode:  "SUMMER10",
	})
	assert.ErrorIs(t, err, ErrPromoUsed)
}

func TestDirectBook_PromoCodeIsCanonicalized(t *testing.T) {
	svc, _, showtimeID := newTestService(t)
	ctx := context.Background()

	userID := uuid.New()
	b, err := svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
		TotalCents: 1350,
		PromoCode:  " summer10 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", b.PromoCode)

	// a case-variant spelling is still the same code for this user
	_, err = svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 2}},
		TotalCents: 1350,
		PromoCode:  "Summer10",
	})
	assert.ErrorIs(t, err, ErrPromoUsed)
}

func TestDirectBook_UnknownShowtime(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.DirectBook(context.Background(), DirectInput{
		UserID:     uuid.New(),
		ShowtimeID: uuid.New(),
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
		TotalCents: 1500,
	})
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestListForUser_NewestFirst(t *testing.T) {
	svc, _, showtimeID := newTestService(t)
	ctx := context.Background()

	userID := uuid.New()
	first, err := svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 1}},
		TotalCents: 1500,
	})
	require.NoError(t, err)

	second, err := svc.DirectBook(ctx, DirectInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "A", Number: 2}},
		TotalCents: 1500,
	})
	require.NoError(t, err)

	// someone else's booking must not leak into the list
	_, err = svc.DirectBook(ctx, DirectInput{
		UserID:     uuid.New(),
		ShowtimeID: showtimeID,
		Seats:      []domain.SeatRef{{Row: "B", Number: 1}},
		TotalCents: 1500,
	})
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
