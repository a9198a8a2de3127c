package purchase

import (
	"errors"
	"fmt"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

var (
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrNoSeatsSelected  = errors.New("no seats selected")
	ErrInvalidHold      = errors.New("invalid hold id")
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo code not currently valid")
	ErrPromoUsed        = errors.New("promo code already used by this user")
	ErrTotalMismatch    = errors.New("total does not match ticket prices")
	ErrBadAgeCategories = errors.New("age categories do not match seats")
)

// SeatSaleError reports the seat that could not be sold and why: not held by
// this hold, hold expired, already sold, or unknown seat. The purchase aborts
// as a whole; no other seat in the request changes state.
type SeatSaleError struct {
	Seat   domain.SeatRef
	Reason string
}

func (e SeatSaleError) Error() string {
	return fmt.Sprintf("cannot sell seat %s: %s", e.Seat.Code(), e.Reason)
}
