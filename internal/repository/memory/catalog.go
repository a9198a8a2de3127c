package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type PromotionRepo struct {
	s *Store
}

func (r *PromotionRepo) Create(ctx context.Context, p *domain.Promotion) error {
	const op = "memory.PromotionRepo.Create"

	unlock := r.s.lockLedger()
	defer unlock()

	code := strings.ToUpper(p.Code)
	if _, exists := r.s.state.promotions[code]; exists {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	cp := *p
	cp.Code = code
	r.s.state.promotions[code] = &cp

	return nil
}

func (r *PromotionRepo) Get(ctx context.Context, code string) (*domain.Promotion, error) {
	const op = "memory.PromotionRepo.Get"

	unlock := r.s.lockLedger()
	defer unlock()

	p, ok := r.s.state.promotions[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	cp := *p

	return &cp, nil
}

type TheatreRepo struct {
	s *Store
}

func (r *TheatreRepo) Create(ctx context.Context, t *domain.Theatre) error {
	const op = "memory.TheatreRepo.Create"

	unlock := r.s.lockLedger()
	defer unlock()

	if _, exists := r.s.state.theatres[t.ID]; exists {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	cp := *t
	cp.Auditoriums = append([]domain.Auditorium(nil), t.Auditoriums...)
	r.s.state.theatres[t.ID] = &cp

	return nil
}

func (r *TheatreRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Theatre, error) {
	const op = "memory.TheatreRepo.Get"

	unlock := r.s.lockLedger()
	defer unlock()

	t, ok := r.s.state.theatres[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	cp := *t

	return &cp, nil
}
