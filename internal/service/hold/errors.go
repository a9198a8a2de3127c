package hold

import (
	"errors"
	"fmt"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

var (
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrNoSeatsSelected  = errors.New("no seats selected")
	ErrDuplicateSeats   = errors.New("duplicate seats in request")
	ErrRateLimited      = errors.New("rate limited")
)

// SeatConflictError names the specific seat that blocked a hold. When one
// seat conflicts, every seat already claimed under the hold has been rolled
// back to available.
type SeatConflictError struct {
	Seat   domain.SeatRef
	Reason string
}

func (e SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s unavailable: %s", e.Seat.Code(), e.Reason)
}
