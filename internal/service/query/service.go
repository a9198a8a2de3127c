// Package query serves the read side: showtime summaries, seat maps, and
// availability counts, cached in Redis with short TTLs. Held seats whose hold
// has lapsed are reported as available even before a sweep resets them.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
)

var ErrShowtimeNotFound = errors.New("showtime not found")

const (
	summaryTTL      = 5 * time.Minute
	seatMapTTL      = 5 * time.Second
	availabilityTTL = 5 * time.Second
)

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
}

func New(store repository.Store, cache *redisrepo.Cache) *Service {
	return &Service{store: store, cache: cache}
}

// SeatMap is the client-facing seat list. Hold tokens are never exposed; a
// seat is either available, held, or sold.
type SeatMap struct {
	ShowtimeID uuid.UUID `json:"showtime_id"`
	Seats      []SeatView `json:"seats"`
}

type SeatView struct {
	Row    string            `json:"row"`
	Number int               `json:"number"`
	Status domain.SeatStatus `json:"status"`
}

func (s *Service) GetShowtime(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	const op = "service.query.GetShowtime"

	load := func(ctx context.Context) (*domain.Showtime, error) {
		return s.store.Showtimes().Get(ctx, id)
	}

	var st *domain.Showtime
	var err error
	if s.cache != nil {
		st, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyShowtimeSummary(id), summaryTTL, load)
	} else {
		st, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

func (s *Service) GetSeatMap(ctx context.Context, id uuid.UUID) (*SeatMap, error) {
	const op = "service.query.GetSeatMap"

	load := func(ctx context.Context) (*SeatMap, error) {
		seats, err := s.store.Showtimes().Seats(ctx, id)
		if err != nil {
			return nil, err
		}
		return buildSeatMap(id, seats, time.Now()), nil
	}

	var sm *SeatMap
	var err error
	if s.cache != nil {
		sm, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyShowtimeSeatMap(id), seatMapTTL, load)
	} else {
		sm, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sm, nil
}

func (s *Service) GetAvailability(ctx context.Context, id uuid.UUID) (*domain.ShowtimeCounts, error) {
	const op = "service.query.GetAvailability"

	load := func(ctx context.Context) (*domain.ShowtimeCounts, error) {
		return s.store.Showtimes().Counts(ctx, id)
	}

	var counts *domain.ShowtimeCounts
	var err error
	if s.cache != nil {
		counts, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyShowtimeAvailability(id), availabilityTTL, load)
	} else {
		counts, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return counts, nil
}

func buildSeatMap(id uuid.UUID, seats []domain.Seat, now time.Time) *SeatMap {
	out := &SeatMap{ShowtimeID: id, Seats: make([]SeatView, 0, len(seats))}

	for _, seat := range seats {
		status := seat.Status
		if seat.ExpiredAt(now) {
			status = domain.SeatAvailable
		}
		out.Seats = append(out.Seats, SeatView{
			Row:    seat.Row,
			Number: seat.Number,
			Status: status,
		})
	}

	return out
}
