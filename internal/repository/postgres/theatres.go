package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

// TheatreRepo stores theatres with their auditorium layouts as a jsonb
// document. Layouts are templates only; showtimes copy them at creation.
type TheatreRepo struct {
	db DB
}

func (r *TheatreRepo) Create(ctx context.Context, t *domain.Theatre) error {
	const op = "postgres.TheatreRepo.Create"

	auds, err := json.Marshal(t.Auditoriums)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := r.db.Exec(ctx,
		`INSERT INTO theatres(id, name, address, auditoriums)
       	 VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Address, auds,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TheatreRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Theatre, error) {
	const op = "postgres.TheatreRepo.Get"

	var t domain.Theatre
	var auds []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, name, address, auditoriums FROM theatres WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Address, &auds)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := json.Unmarshal(auds, &t.Auditoriums); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}
