// Package notify carries one-way notifications to the external email
// collaborator. Dispatch is fire-and-forget: a failed publish is logged by
// the caller and never rolls back the purchase it describes.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// BookingConfirmation is the payload for a booking-confirmation email. It
// carries everything the mailer template needs so the consumer never has to
// query the primary database.
type BookingConfirmation struct {
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	MovieTitle  string    `json:"movie_title"`
	TheatreName string    `json:"theatre_name"`
	Showroom    string    `json:"showroom"`
	StartTime   string    `json:"start_time"`
	SeatLabels  []string  `json:"seats"`
	TicketCount int       `json:"ticket_count"`
	TotalCents  int       `json:"total_cents"`
	ConfirmedAt string    `json:"confirmed_at"`
}

// Notifier dispatches booking confirmations.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev BookingConfirmation) error
}
