package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
	"github.com/bulldogcinemas/cinema-go/internal/service"
	"github.com/bulldogcinemas/cinema-go/internal/service/booking"
	"github.com/bulldogcinemas/cinema-go/internal/service/catalog"
	"github.com/bulldogcinemas/cinema-go/internal/service/hold"
	"github.com/bulldogcinemas/cinema-go/internal/service/purchase"
	"github.com/bulldogcinemas/cinema-go/internal/service/query"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	jwtSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/showtimes/:id", handleGetShowtime(svcs))
	r.GET("/showtimes/:id/seats", handleGetSeatMap(svcs))
	r.GET("/showtimes/:id/availability", handleGetAvailability(svcs))

	r.POST("/showtimes/:id/check-seats", handleCheckSeats(svcs))

	auth := r.Group("/", AuthMiddleware(jwtSecret))
	{
		auth.POST("/showtimes/:id/hold", handleCreateHold(svcs, idem))
		auth.DELETE("/showtimes/:id/hold/:holdID", handleReleaseHold(svcs))
		auth.POST("/showtimes/:id/purchase", handlePurchase(svcs))
		auth.POST("/bookings", handleDirectBooking(svcs))
		auth.GET("/bookings/:id", handleGetBooking(svcs))
		auth.GET("/me/bookings", handleListMyBookings(svcs))
	}

	// Admin-API
	// TODO: add admin middleware
	admin := r.Group("/admin")
	{
		admin.POST("/theatres", handleCreateTheatre(svcs))
		admin.POST("/showtimes", handleCreateShowtime(svcs))
		admin.POST("/promotions", handleCreatePromotion(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Get showtime
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Success  200  {object}  domain.Showtime
// @Failure  404  {object}  ErrorResponse
// @Router   /showtimes/{id} [get]
func handleGetShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Query.GetShowtime(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, st, "public, max-age=60", true)
	}
}

// @Summary  Get seat map
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Success  200  {object}  query.SeatMap
// @Router   /showtimes/{id}/seats [get]
func handleGetSeatMap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		sm, err := svcs.Query.GetSeatMap(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, sm, "public, max-age=15", true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Success  200  {object}  domain.ShowtimeCounts
// @Router   /showtimes/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Query.GetAvailability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, cnt, "public, max-age=15", true)
	}
}

// @Summary  Create hold (idempotent)
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Param    req body  CreateHoldRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateHoldResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seats unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /showtimes/{id}/hold [post]
func handleCreateHold(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		showtimeID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CreateHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemHold(showtimeID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		ttl := time.Duration(req.TTLSec) * time.Second

		rlKey := "ip:" + c.ClientIP()
		if userID, ok := currentUserID(c); ok {
			rlKey = "user:" + userID.String()
		}

		h, err := svcs.Hold.CreateHold(
			c.Request.Context(),
			showtimeID,
			toSeatRefs(req.Seats),
			ttl,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, hold.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: "rate limited"},
				)
				return
			}
			respondErr(c, err)
			return
		}

		resp := CreateHoldResponse{
			HoldID:    h.ID.String(),
			ExpiresAt: h.ExpiresAt,
			Seats:     h.Seats,
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Release hold
// @Param    id      path  string  true  "Showtime ID (uuid)"
// @Param    holdID  path  string  true  "Hold ID (uuid)"
// @Success  200 {object} ReleaseHoldResponse
// @Router   /showtimes/{id}/hold/{holdID} [delete]
func handleReleaseHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showtimeID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		holdID, ok := parseUUIDParam(c, "holdID")
		if !ok {
			return
		}
		released, err := svcs.Hold.Release(c.Request.Context(), showtimeID, holdID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ReleaseHoldResponse{Released: released})
	}
}

// @Summary  Check seat availability (advisory)
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Param    req body  CheckSeatsRequest true "payload"
// @Success  200 {object} CheckSeatsResponse
// @Router   /showtimes/{id}/check-seats [post]
func handleCheckSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showtimeID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CheckSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		conflicts, err := svcs.Hold.CheckSeats(
			c.Request.Context(),
			showtimeID,
			toSeatRefs(req.Seats),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, CheckSeatsResponse{
			Available: len(conflicts) == 0,
			Conflicts: conflicts,
		})
	}
}

// @Summary  Purchase held seats
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Param    req body  PurchaseRequest true "payload"
// @Success  201 {object} domain.Booking
// @Failure  409 {object} ErrorResponse
// @Router   /showtimes/{id}/purchase [post]
func handlePurchase(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showtimeID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		var req PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		holdID, err := uuid.Parse(req.HoldID)
		if err != nil {
			badRequest(c, "invalid hold_id")
			return
		}
		b, err := svcs.Purchase.Purchase(c.Request.Context(), purchase.Input{
			ShowtimeID:    showtimeID,
			HoldID:        holdID,
			UserID:        userID,
			Seats:         toSeatRefs(req.Seats),
			TotalCents:    req.TotalCents,
			PaymentLast4:  req.PaymentLast4,
			PromoCode:     req.PromoCode,
			AgeCategories: req.AgeCategories,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

// @Summary  Create booking (legacy direct path)
// @Param    req body  DirectBookingRequest true "payload"
// @Success  201 {object} domain.Booking
// @Failure  409 {object} ErrorResponse
// @Router   /bookings [post]
func handleDirectBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		var req DirectBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		showtimeID, err := uuid.Parse(req.ShowtimeID)
		if err != nil {
			badRequest(c, "invalid showtime_id")
			return
		}
		b, err := svcs.Booking.DirectBook(c.Request.Context(), booking.DirectInput{
			UserID:        userID,
			ShowtimeID:    showtimeID,
			Seats:         toSeatRefs(req.Seats),
			MovieTitle:    req.MovieTitle,
			TicketCount:   req.TicketCount,
			AgeCategories: req.AgeCategories,
			TotalCents:    req.TotalCents,
			PaymentLast4:  req.PaymentLast4,
			PromoCode:     req.PromoCode,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		b, err := svcs.Booking.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		if b.UserID != userID {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List my bookings
// @Success  200 {array} domain.Booking
// @Router   /me/bookings [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		list, err := svcs.Booking.ListForUser(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Booking{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Create theatre with auditorium layouts
// @Param    req body  CreateTheatreRequest true "payload"
// @Success  201 {object} domain.Theatre
// @Router   /admin/theatres [post]
func handleCreateTheatre(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTheatreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		auds := make([]domain.Auditorium, 0, len(req.Auditoriums))
		for _, a := range req.Auditoriums {
			seats := make([]domain.SeatDef, 0, len(a.Seats))
			for _, s := range a.Seats {
				seats = append(seats, domain.SeatDef{Row: s.Row, Number: s.Number})
			}
			auds = append(auds, domain.Auditorium{
				Name:          a.Name,
				LayoutVersion: a.LayoutVersion,
				Seats:         seats,
			})
		}
		t, err := svcs.Catalog.CreateTheatre(c.Request.Context(), catalog.TheatreInput{
			Name:        req.Name,
			Address:     req.Address,
			Auditoriums: auds,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  Create showtime (snapshots the auditorium layout)
// @Param    req body  CreateShowtimeRequest true "payload"
// @Success  201 {object} domain.Showtime
// @Failure  409 {object} ErrorResponse
// @Router   /admin/showtimes [post]
func handleCreateShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShowtimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		theatreID, err := uuid.Parse(req.TheatreID)
		if err != nil {
			badRequest(c, "invalid theatre_id")
			return
		}
		movieID, err := uuid.Parse(req.MovieID)
		if err != nil {
			badRequest(c, "invalid movie_id")
			return
		}
		start, err := parseRFC3339(req.StartTime)
		if err != nil {
			badRequest(c, "invalid start_time (RFC3339)")
			return
		}
		st, err := svcs.Catalog.CreateShowtime(c.Request.Context(), catalog.ShowtimeInput{
			TheatreID:    theatreID,
			AuditoriumID: req.AuditoriumID,
			MovieID:      movieID,
			MovieTitle:   req.MovieTitle,
			StartTime:    start,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, st)
	}
}

// @Summary  Create promotion
// @Param    req body  CreatePromotionRequest true "payload"
// @Success  201 {object} domain.Promotion
// @Router   /admin/promotions [post]
func handleCreatePromotion(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePromotionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		from, err := parseRFC3339(req.ValidFrom)
		if err != nil {
			badRequest(c, "invalid valid_from (RFC3339)")
			return
		}
		to, err := parseRFC3339(req.ValidTo)
		if err != nil {
			badRequest(c, "invalid valid_to (RFC3339)")
			return
		}
		p, err := svcs.Catalog.CreatePromotion(c.Request.Context(), catalog.PromotionInput{
			Code:          req.Code,
			Description:   req.Description,
			DiscountType:  domain.DiscountType(req.DiscountType),
			DiscountValue: req.DiscountValue,
			ValidFrom:     from,
			ValidTo:       to,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var seatConflict hold.SeatConflictError
	if errors.As(err, &seatConflict) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: seatConflict.Error()})
		return
	}
	var seatSale purchase.SeatSaleError
	if errors.As(err, &seatSale) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: seatSale.Error()})
		return
	}
	var seatBooked booking.SeatBookedError
	if errors.As(err, &seatBooked) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: seatBooked.Error()})
		return
	}

	switch {
	// hold service
	case errors.Is(err, hold.ErrShowtimeNotFound),
		errors.Is(err, purchase.ErrShowtimeNotFound),
		errors.Is(err, booking.ErrShowtimeNotFound),
		errors.Is(err, query.ErrShowtimeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "showtime not found"})
		return
	case errors.Is(err, hold.ErrNoSeatsSelected),
		errors.Is(err, purchase.ErrNoSeatsSelected),
		errors.Is(err, booking.ErrNoSeatsSelected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no seats selected"})
		return
	case errors.Is(err, hold.ErrDuplicateSeats):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "duplicate seats in request"})
		return
	// purchase service
	case errors.Is(err, purchase.ErrInvalidHold):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid hold id"})
		return
	case errors.Is(err, purchase.ErrPromoNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "promo code not found"})
		return
	case errors.Is(err, purchase.ErrPromoInactive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "promo code not currently valid"})
		return
	case errors.Is(err, purchase.ErrPromoUsed), errors.Is(err, booking.ErrPromoUsed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "promo code already used"})
		return
	case errors.Is(err, purchase.ErrTotalMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "total does not match ticket prices"})
		return
	case errors.Is(err, purchase.ErrBadAgeCategories):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid age categories"})
		return
	// booking service
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	// catalog service
	case errors.Is(err, catalog.ErrTheatreNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "theatre not found"})
		return
	case errors.Is(err, catalog.ErrAuditoriumNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "auditorium not found"})
		return
	case errors.Is(err, catalog.ErrShowtimeConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "showtime conflict"})
		return
	case errors.Is(err, catalog.ErrEmptyLayout),
		errors.Is(err, catalog.ErrDuplicateSeatDef),
		errors.Is(err, catalog.ErrBadPromoWindow),
		errors.Is(err, catalog.ErrBadDiscount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, catalog.ErrPromoExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "promo code already exists"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
