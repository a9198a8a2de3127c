package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
)

// SeatRef identifies a seat inside one showtime by its row label and number.
type SeatRef struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

// Code renders the seat in the "A1" form used in conflict reports.
func (r SeatRef) Code() string {
	return fmt.Sprintf("%s%d", strings.ToUpper(r.Row), r.Number)
}

// Key is the canonical map key for a seat within a showtime. Row labels are
// case-insensitive: "a1" and "A1" are the same seat.
func (r SeatRef) Key() string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(r.Row), r.Number)
}

// Seat is one element of a showtime's seat map. HeldBy and HeldUntil are set
// iff Status is "held"; a held seat whose HeldUntil has passed is logically
// available again even before the sweep resets it.
type Seat struct {
	Row       string     `json:"row"`
	Number    int        `json:"number"`
	Status    SeatStatus `json:"status"`
	HeldBy    *uuid.UUID `json:"held_by,omitempty"`
	HeldUntil *time.Time `json:"held_until,omitempty"`
}

func (s Seat) Ref() SeatRef {
	return SeatRef{Row: s.Row, Number: s.Number}
}

// ExpiredAt reports whether the seat is a held seat whose hold has lapsed.
func (s Seat) ExpiredAt(now time.Time) bool {
	return s.Status == SeatHeld && s.HeldUntil != nil && !s.HeldUntil.After(now)
}

// Showtime is one scheduled screening. Its seat list is a snapshot taken from
// the auditorium layout at creation time, never a live join against the
// theatre template: LayoutVersion and LayoutChecksum record which layout the
// snapshot came from.
type Showtime struct {
	ID             uuid.UUID `json:"id"`
	MovieID        uuid.UUID `json:"movie_id"`
	MovieTitle     string    `json:"movie_title"`
	TheatreName    string    `json:"theatre_name"`
	Showroom       string    `json:"showroom"`
	StartTime      time.Time `json:"start_time"`
	LayoutVersion  int       `json:"layout_version"`
	LayoutChecksum string    `json:"layout_checksum"`
}

type ShowtimeCounts struct {
	Available int64 `json:"available"`
	Held      int64 `json:"held"`
	Sold      int64 `json:"sold"`
	Total     int64 `json:"total"`
}

// Booking is the durable, immutable record of a completed sale.
type Booking struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ShowtimeID    uuid.UUID `json:"showtime_id"`
	MovieTitle    string    `json:"movie_title,omitempty"`
	TheatreName   string    `json:"theatre_name,omitempty"`
	Showroom      string    `json:"showroom,omitempty"`
	StartTime     time.Time `json:"start_time"`
	Seats         []SeatRef `json:"seats"`
	TicketCount   int       `json:"ticket_count"`
	AgeCategories []string  `json:"age_categories,omitempty"`
	TotalCents    int       `json:"total_cents"`
	PaymentLast4  string    `json:"payment_last4,omitempty"`
	PromoCode     string    `json:"promo_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

type Promotion struct {
	Code          string       `json:"code"`
	Description   string       `json:"description"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int          `json:"discount_value"`
	ValidFrom     time.Time    `json:"valid_from"`
	ValidTo       time.Time    `json:"valid_to"`
}

// ActiveAt reports whether the promotion may be applied at the given instant.
func (p Promotion) ActiveAt(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// SeatDef is one seat in a theatre auditorium layout template.
type SeatDef struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

// Auditorium is an immutable layout template inside a theatre. Showtimes copy
// its seats at creation time.
type Auditorium struct {
	AuditoriumID  string    `json:"auditorium_id"`
	Name          string    `json:"name"`
	LayoutVersion int       `json:"layout_version"`
	Seats         []SeatDef `json:"seats"`
}

type Theatre struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address,omitempty"`
	Auditoriums []Auditorium `json:"auditoriums"`
}
