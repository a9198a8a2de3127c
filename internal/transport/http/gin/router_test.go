package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository/memory"
	"github.com/bulldogcinemas/cinema-go/internal/service"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	st := &domain.Showtime{
		ID:          uuid.New(),
		MovieID:     uuid.New(),
		MovieTitle:  "Fargo",
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(service.Deps{Store: store, Logger: logger})

	return NewRouter(svcs, nil, testSecret, logger), store, st.ID
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

func doJSON(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetShowtime(t *testing.T) {
	r, _, showtimeID := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/showtimes/"+showtimeID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))

	var st domain.Showtime
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "Fargo", st.MovieTitle)

	w = doJSON(r, http.MethodGet, "/showtimes/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/showtimes/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHoldLifecycle(t *testing.T) {
	r, _, showtimeID := newTestRouter(t)
	base := "/showtimes/" + showtimeID.String()
	token := mintToken(t, uuid.New())

	// holds require a logged-in user
	w := doJSON(r, http.MethodPost, base+"/hold", "", CreateHoldRequest{
		Seats: []SeatRefInput{{Row: "A", Number: 1}},
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, base+"/hold", token, CreateHoldRequest{
		Seats: []SeatRefInput{{Row: "A", Number: 1}, {Row: "A", Number: 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.HoldID)
	assert.Len(t, created.Seats, 2)

	// a competing hold on one of the seats conflicts
	w = doJSON(r, http.MethodPost, base+"/hold", mintToken(t, uuid.New()), CreateHoldRequest{
		Seats: []SeatRefInput{{Row: "A", Number: 2}, {Row: "B", Number: 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "A2")

	// releasing frees both seats, and releasing again is a no-op
	w = doJSON(r, http.MethodDelete, base+"/hold/"+created.HoldID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rel ReleaseHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rel))
	assert.EqualValues(t, 2, rel.Released)

	w = doJSON(r, http.MethodDelete, base+"/hold/"+created.HoldID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rel))
	assert.EqualValues(t, 0, rel.Released)
}

func TestCheckSeats(t *testing.T) {
	r, store, showtimeID := newTestRouter(t)

	require.NoError(t, store.Seats().MarkSold(context.Background(), showtimeID,
		[]domain.SeatRef{{Row: "A", Number: 1}}))

	w := doJSON(r, http.MethodPost, "/showtimes/"+showtimeID.String()+"/check-seats", "",
		CheckSeatsRequest{Seats: []SeatRefInput{{Row: "A", Number: 1}, {Row: "A", Number: 2}}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckSeatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
	assert.Equal(t, []string{"A1"}, resp.Conflicts)
}

func TestPurchase_RequiresAuth(t *testing.T) {
	r, _, showtimeID := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/showtimes/"+showtimeID.String()+"/purchase", "",
		PurchaseRequest{HoldID: uuid.NewString(), Seats: []SeatRefInput{{Row: "A", Number: 1}}, TotalCents: 1500})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/showtimes/"+showtimeID.String()+"/purchase", "garbage",
		PurchaseRequest{HoldID: uuid.NewString(), Seats: []SeatRefInput{{Row: "A", Number: 1}}, TotalCents: 1500})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPurchaseFlow(t *testing.T) {
	r, _, showtimeID := newTestRouter(t)
	base := "/showtimes/" + showtimeID.String()

	userID := uuid.New()
	token := mintToken(t, userID)

	w := doJSON(r, http.MethodPost, base+"/hold", token, CreateHoldRequest{
		Seats: []SeatRefInput{{Row: "A", Number: 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created CreateHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodPost, base+"/purchase", token, PurchaseRequest{
		HoldID:        created.HoldID,
		Seats:         []SeatRefInput{{Row: "A", Number: 1}},
		TotalCents:    1500,
		PaymentLast4:  "4242",
		AgeCategories: []string{"adult"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, userID, b.UserID)
	assert.Equal(t, 1500, b.TotalCents)

	// a second purchase of the same seat fails: the hold is spent
	w = doJSON(r, http.MethodPost, base+"/purchase", token, PurchaseRequest{
		HoldID:     created.HoldID,
		Seats:      []SeatRefInput{{Row: "A", Number: 1}},
		TotalCents: 1500,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// history shows the booking
	w = doJSON(r, http.MethodGet, "/me/bookings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	// the owner can fetch it directly; another user cannot
	w = doJSON(r, http.MethodGet, "/bookings/"+b.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/bookings/"+b.ID.String(), mintToken(t, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectBooking(t *testing.T) {
	r, _, showtimeID := newTestRouter(t)
	token := mintToken(t, uuid.New())

	req := DirectBookingRequest{
		ShowtimeID: showtimeID.String(),
		Seats:      []SeatRefInput{{Row: "B", Number: 1}},
		TotalCents: 1500,
	}

	w := doJSON(r, http.MethodPost, "/bookings", token, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// the same seat cannot be direct-booked twice
	w = doJSON(r, http.MethodPost, "/bookings", mintToken(t, uuid.New()), req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminCatalogFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/admin/theatres", "", CreateTheatreRequest{
		Name: "Uptown",
		Auditoriums: []AuditoriumInput{
			{Name: "Main", Seats: []SeatRefInput{{Row: "A", Number: 1}, {Row: "A", Number: 2}}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var th domain.Theatre
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &th))

	w = doJSON(r, http.MethodPost, "/admin/showtimes", "", CreateShowtimeRequest{
		TheatreID:    th.ID.String(),
		AuditoriumID: th.Auditoriums[0].AuditoriumID,
		MovieID:      uuid.NewString(),
		MovieTitle:   "Alien",
		StartTime:    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st domain.Showtime
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.NotEmpty(t, st.LayoutChecksum)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/showtimes/%s/availability", st.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var counts domain.ShowtimeCounts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.EqualValues(t, 2, counts.Total)

	w = doJSON(r, http.MethodPost, "/admin/promotions", "", CreatePromotionRequest{
		Code:          "WINTER20",
		DiscountType:  "PERCENT",
		DiscountValue: 20,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
