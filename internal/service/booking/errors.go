package booking

import (
	"errors"
	"fmt"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

var (
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrNoSeatsSelected  = errors.New("no seats selected")
	ErrPromoUsed        = errors.New("promo code already used by this user")
)

// SeatBookedError reports a seat already referenced by an existing booking
// for the showtime.
type SeatBookedError struct {
	Seat domain.SeatRef
}

func (e SeatBookedError) Error() string {
	return fmt.Sprintf("seat %s is already booked", e.Seat.Code())
}
