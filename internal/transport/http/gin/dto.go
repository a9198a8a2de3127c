package httpgin

import (
	"time"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

type SeatRefInput struct {
	Row    string `json:"row" binding:"required"`
	Number int    `json:"number" binding:"required,gt=0"`
}

func toSeatRefs(in []SeatRefInput) []domain.SeatRef {
	out := make([]domain.SeatRef, 0, len(in))
	for _, s := range in {
		out = append(out, domain.SeatRef{Row: s.Row, Number: s.Number})
	}
	return out
}

type CreateHoldRequest struct {
	Seats  []SeatRefInput `json:"seats" binding:"required,min=1,dive"`
	TTLSec int            `json:"ttl_sec"`
}

type CreateHoldResponse struct {
	HoldID    string        `json:"hold_id"`
	ExpiresAt time.Time     `json:"expires_at"`
	Seats     []domain.Seat `json:"seats"`
}

type ReleaseHoldResponse struct {
	Released int64 `json:"released"`
}

type CheckSeatsRequest struct {
	Seats []SeatRefInput `json:"seats" binding:"required,min=1,dive"`
}

type CheckSeatsResponse struct {
	Available bool     `json:"available"`
	Conflicts []string `json:"conflicts,omitempty"`
}

type PurchaseRequest struct {
	HoldID        string         `json:"hold_id" binding:"required,uuid"`
	Seats         []SeatRefInput `json:"seats" binding:"required,min=1,dive"`
	TotalCents    int            `json:"total_cents" binding:"required,gt=0"`
	PaymentLast4  string         `json:"payment_last4" binding:"omitempty,len=4,numeric"`
	PromoCode     string         `json:"promo_code"`
	AgeCategories []string       `json:"age_categories"`
}

type DirectBookingRequest struct {
	ShowtimeID    string         `json:"showtime_id" binding:"required,uuid"`
	Seats         []SeatRefInput `json:"seats" binding:"required,min=1,dive"`
	MovieTitle    string         `json:"movie_title"`
	TicketCount   int            `json:"ticket_count"`
	AgeCategories []string       `json:"age_categories"`
	TotalCents    int            `json:"total_cents" binding:"required,gt=0"`
	PaymentLast4  string         `json:"payment_last4" binding:"omitempty,len=4,numeric"`
	PromoCode     string         `json:"promo_code"`
}

type CreateTheatreRequest struct {
	Name        string            `json:"name" binding:"required"`
	Address     string            `json:"address"`
	Auditoriums []AuditoriumInput `json:"auditoriums" binding:"required,min=1,dive"`
}

type AuditoriumInput struct {
	Name          string         `json:"name" binding:"required"`
	LayoutVersion int            `json:"layout_version"`
	Seats         []SeatRefInput `json:"seats" binding:"required,min=1,dive"`
}

type CreateShowtimeRequest struct {
	TheatreID    string `json:"theatre_id" binding:"required,uuid"`
	AuditoriumID string `json:"auditorium_id" binding:"required"`
	MovieID      string `json:"movie_id" binding:"required,uuid"`
	MovieTitle   string `json:"movie_title" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
}

type CreatePromotionRequest struct {
	Code          string `json:"code" binding:"required"`
	Description   string `json:"description"`
	DiscountType  string `json:"discount_type" binding:"required,oneof=PERCENT FIXED"`
	DiscountValue int    `json:"discount_value" binding:"required,gt=0"`
	ValidFrom     string `json:"valid_from" binding:"required"`
	ValidTo       string `json:"valid_to" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
