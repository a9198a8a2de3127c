// Package catalog manages the admin-side inventory: theatres with their
// auditorium layouts, showtime creation (which snapshots a layout into a seat
// map), and promotions.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type Service struct {
	store repository.Store
}

func New(store repository.Store) *Service {
	return &Service{store: store}
}

type TheatreInput struct {
	Name        string
	Address     string
	Auditoriums []domain.Auditorium
}

func (s *Service) CreateTheatre(ctx context.Context, in TheatreInput) (*domain.Theatre, error) {
	const op = "service.catalog.CreateTheatre"

	for i := range in.Auditoriums {
		aud := &in.Auditoriums[i]
		if err := validateLayout(aud.Seats); err != nil {
			return nil, fmt.Errorf("%s: auditorium %q: %w", op, aud.Name, err)
		}
		if aud.LayoutVersion <= 0 {
			aud.LayoutVersion = 1
		}
		if aud.AuditoriumID == "" {
			aud.AuditoriumID = uuid.NewString()
		}
	}

	t := &domain.Theatre{
		ID:          uuid.New(),
		Name:        in.Name,
		Address:     in.Address,
		Auditoriums: in.Auditoriums,
	}

	if err := s.store.Theatres().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (s *Service) GetTheatre(ctx context.Context, id uuid.UUID) (*domain.Theatre, error) {
	const op = "service.catalog.GetTheatre"

	t, err := s.store.Theatres().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTheatreNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

type ShowtimeInput struct {
	TheatreID    uuid.UUID
	AuditoriumID string
	MovieID      uuid.UUID
	MovieTitle   string
	StartTime    time.Time
}

// CreateShowtime copies the auditorium layout into a fresh seat map for the
// screening. The showtime keeps its own snapshot from then on; later edits to
// the theatre layout never touch an existing showtime's seats.
func (s *Service) CreateShowtime(ctx context.Context, in ShowtimeInput) (*domain.Showtime, error) {
	const op = "service.catalog.CreateShowtime"

	t, err := s.store.Theatres().Get(ctx, in.TheatreID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTheatreNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var aud *domain.Auditorium
	for i := range t.Auditoriums {
		if t.Auditoriums[i].AuditoriumID == in.AuditoriumID ||
			strings.EqualFold(t.Auditoriums[i].Name, in.AuditoriumID) {
			aud = &t.Auditoriums[i]
			break
		}
	}
	if aud == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAuditoriumNotFound)
	}

	if err := validateLayout(aud.Seats); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &domain.Showtime{
		ID:             uuid.New(),
		MovieID:        in.MovieID,
		MovieTitle:     in.MovieTitle,
		TheatreName:    t.Name,
		Showroom:       aud.Name,
		StartTime:      in.StartTime.UTC(),
		LayoutVersion:  aud.LayoutVersion,
		LayoutChecksum: LayoutChecksum(aud.Seats),
	}

	seats := make([]domain.Seat, 0, len(aud.Seats))
	for _, def := range aud.Seats {
		seats = append(seats, domain.Seat{
			Row:    strings.ToUpper(def.Row),
			Number: def.Number,
			Status: domain.SeatAvailable,
		})
	}

	if err := s.store.Showtimes().Create(ctx, st, seats); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeConflict)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

type PromotionInput struct {
	Code          string
	Description   string
	DiscountType  domain.DiscountType
	DiscountValue int
	ValidFrom     time.Time
	ValidTo       time.Time
}

func (s *Service) CreatePromotion(ctx context.Context, in PromotionInput) (*domain.Promotion, error) {
	const op = "service.catalog.CreatePromotion"

	switch in.DiscountType {
	case domain.DiscountPercent:
		if in.DiscountValue <= 0 || in.DiscountValue > 100 {
			return nil, fmt.Errorf("%s: %w", op, ErrBadDiscount)
		}
	case domain.DiscountFixed:
		if in.DiscountValue <= 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrBadDiscount)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrBadDiscount)
	}

	if in.ValidTo.Before(in.ValidFrom) {
		return nil, fmt.Errorf("%s: %w", op, ErrBadPromoWindow)
	}

	p := &domain.Promotion{
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		Description:   in.Description,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		ValidFrom:     in.ValidFrom.UTC(),
		ValidTo:       in.ValidTo.UTC(),
	}

	if err := s.store.Promotions().Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrPromoExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// LayoutChecksum hashes the canonical form of a seat layout: keys uppercased,
// sorted, joined with newlines. Two layouts with the same seats in any order
// produce the same checksum.
func LayoutChecksum(seats []domain.SeatDef) string {
	keys := make([]string, 0, len(seats))
	for _, def := range seats {
		keys = append(keys, domain.SeatRef{Row: def.Row, Number: def.Number}.Key())
	}
	sort.Strings(keys)

	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

func validateLayout(seats []domain.SeatDef) error {
	if len(seats) == 0 {
		return ErrEmptyLayout
	}

	seen := make(map[string]struct{}, len(seats))
	for _, def := range seats {
		key := domain.SeatRef{Row: def.Row, Number: def.Number}.Key()
		if _, dup := seen[key]; dup {
			return ErrDuplicateSeatDef
		}
		seen[key] = struct{}{}
	}

	return nil
}
