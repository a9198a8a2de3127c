package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "cinemago:v1"

func KeyShowtimeSummary(id uuid.UUID) string {
	return fmt.Sprintf("%s:showtime:%s:summary", ns, id)
}

func KeyShowtimeAvailability(id uuid.UUID) string {
	return fmt.Sprintf("%s:showtime:%s:availability", ns, id)
}

func KeyShowtimeSeatMap(id uuid.UUID) string {
	return fmt.Sprintf("%s:showtime:%s:seatmap", ns, id)
}

func ChannelShowtimesChanged() string {
	return ns + ":showtimes:changed"
}
