// Package hold is the hold manager: it creates, releases, and pre-checks
// temporary seat holds on top of the single-seat transition primitives.
package hold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
)

type Config struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration
}

type Service struct {
	store   repository.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.ShowtimesPubSub
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger
	cfg     Config
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimesPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}

	if cfg.MinTTL <= 0 {
		cfg.MinTTL = time.Minute
	}

	if cfg.MaxTTL <= 0 || cfg.MaxTTL < cfg.MinTTL {
		cfg.MaxTTL = 30 * time.Minute
	}

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		logger:  logger,
		cfg:     cfg,
	}
}

// Hold is the result of a successful claim: the token the client must present
// on purchase or release, the shared expiry, and the claimed seat records.
type Hold struct {
	ID        uuid.UUID
	ExpiresAt time.Time
	Seats     []domain.Seat
}

// CreateHold claims the requested seats all-or-nothing. Seats are claimed one
// at a time in request order; the first seat that is sold, or validly held by
// someone else, aborts the operation and rolls the already-claimed seats back
// to available. There is no multi-seat storage transaction here — the
// per-seat guard plus rollback is what gives the hold its atomicity.
func (s *Service) CreateHold(
	ctx context.Context,
	showtimeID uuid.UUID,
	seats []domain.SeatRef,
	ttl time.Duration,
	rlKey string,
) (*Hold, error) {
	const op = "service.hold.CreateHold"

	if len(seats) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatsSelected)
	}

	seen := make(map[string]struct{}, len(seats))
	for _, ref := range seats {
		if _, dup := seen[ref.Key()]; dup {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateSeats)
		}
		seen[ref.Key()] = struct{}{}
	}

	ttl = s.clampTTL(ttl)

	if s.limiter != nil && rlKey != "" {
		ok, _, _, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
		}
	}

	if _, err := s.store.Showtimes().Get(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Lazy expiry: reclaim lapsed holds before claiming.
	if _, err := s.store.Seats().ReleaseExpired(ctx, showtimeID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdID := uuid.New()
	expires := time.Now().Add(ttl)

	for _, ref := range seats {
		if err := s.store.Seats().Claim(ctx, showtimeID, ref, holdID, expires); err != nil {
			// Roll back every seat already claimed under this hold. A failed
			// rollback leaves those seats held until the TTL lapses, so it
			// must not pass silently.
			if _, rbErr := s.store.Seats().ReleaseHold(ctx, showtimeID, holdID); rbErr != nil && s.logger != nil {
				s.logger.Error("hold rollback failed, seats stay held until TTL expiry",
					"showtime_id", showtimeID, "hold_id", holdID, "error", rbErr)
			}
			return nil, fmt.Errorf("%s: %w", op, claimConflict(ref, err))
		}
	}

	claimed, err := s.store.Showtimes().SeatsByRef(ctx, showtimeID, seats)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notifyChanged(ctx, showtimeID)

	return &Hold{ID: holdID, ExpiresAt: expires, Seats: claimed}, nil
}

// Release returns every seat held by holdID to available. Releasing a hold
// that no longer holds anything succeeds as a no-op.
func (s *Service) Release(ctx context.Context, showtimeID, holdID uuid.UUID) (int64, error) {
	const op = "service.hold.Release"

	released, err := s.store.Seats().ReleaseHold(ctx, showtimeID, holdID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if released > 0 {
		s.notifyChanged(ctx, showtimeID)
	}

	return released, nil
}

// CheckSeats is the read-only pre-check: it reports which of the requested
// seats could not be claimed right now, without holding anything. The answer
// is advisory — another client may take a seat between the check and a hold.
func (s *Service) CheckSeats(
	ctx context.Context,
	showtimeID uuid.UUID,
	seats []domain.SeatRef,
) ([]string, error) {
	const op = "service.hold.CheckSeats"

	if len(seats) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatsSelected)
	}

	if _, err := s.store.Showtimes().Get(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.store.Showtimes().SeatsByRef(ctx, showtimeID, seats)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byKey := make(map[string]domain.Seat, len(current))
	for _, seat := range current {
		byKey[seat.Ref().Key()] = seat
	}

	now := time.Now()

	var conflicts []string
	for _, ref := range seats {
		seat, ok := byKey[ref.Key()]
		if !ok {
			conflicts = append(conflicts, ref.Code())
			continue
		}
		switch {
		case seat.Status == domain.SeatSold:
			conflicts = append(conflicts, ref.Code())
		case seat.Status == domain.SeatHeld && !seat.ExpiredAt(now):
			conflicts = append(conflicts, ref.Code())
		}
	}

	return conflicts, nil
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.cfg.DefaultTTL
	}

	if ttl < s.cfg.MinTTL {
		return s.cfg.MinTTL
	}

	if ttl > s.cfg.MaxTTL {
		return s.cfg.MaxTTL
	}

	return ttl
}

func (s *Service) notifyChanged(ctx context.Context, showtimeID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateShowtime(ctx, showtimeID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishShowtimeChanged(ctx, showtimeID)
	}
}

func claimConflict(ref domain.SeatRef, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return SeatConflictError{Seat: ref, Reason: "seat does not exist"}
	case errors.Is(err, repository.ErrSeatSold):
		return SeatConflictError{Seat: ref, Reason: "already sold"}
	case errors.Is(err, repository.ErrSeatHeld):
		return SeatConflictError{Seat: ref, Reason: "held by another customer"}
	default:
		return err
	}
}
