package postgres

import (
	"context"
	"strings"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

type PromotionRepo struct {
	db DB
}

func (r *PromotionRepo) Create(ctx context.Context, p *domain.Promotion) error {
	const op = "postgres.PromotionRepo.Create"

	_, err := r.db.Exec(ctx,
		`INSERT INTO promotions(code, description, discount_type, discount_value,
                            	valid_from, valid_to)
       	 VALUES ($1, $2, $3, $4, $5, $6)`,
		strings.ToUpper(p.Code), p.Description, p.DiscountType, p.DiscountValue,
		p.ValidFrom, p.ValidTo,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PromotionRepo) Get(ctx context.Context, code string) (*domain.Promotion, error) {
	const op = "postgres.PromotionRepo.Get"

	var p domain.Promotion
	err := r.db.QueryRow(ctx,
		`SELECT code, description, discount_type, discount_value, valid_from, valid_to
       	 FROM promotions WHERE code = $1`,
		strings.ToUpper(code),
	).Scan(&p.Code, &p.Description, &p.DiscountType, &p.DiscountValue,
		&p.ValidFrom, &p.ValidTo)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}
