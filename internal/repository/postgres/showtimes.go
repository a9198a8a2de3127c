package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

type ShowtimeRepo struct {
	db DB
}

// Create inserts the showtime record together with its seat-map snapshot.
// The seats are a copy of the auditorium layout; nothing ever joins back to
// the theatre template afterwards.
func (r *ShowtimeRepo) Create(
	ctx context.Context,
	st *domain.Showtime,
	seats []domain.Seat,
) error {
	const op = "postgres.ShowtimeRepo.Create"

	if _, err := r.db.Exec(ctx,
		`INSERT INTO showtimes(
            id, movie_id, movie_title, theatre_name, showroom,
            start_time, layout_version, layout_checksum)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		st.ID, st.MovieID, st.MovieTitle, st.TheatreName, st.Showroom,
		st.StartTime, st.LayoutVersion, st.LayoutChecksum,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO showtime_seats(showtime_id, row_label, seat_number, status)
         	 VALUES ($1, $2, $3, $4)`,
			st.ID, strings.ToUpper(s.Row), s.Number, s.Status,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ShowtimeRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	const op = "postgres.ShowtimeRepo.Get"

	var st domain.Showtime
	err := r.db.QueryRow(ctx,
		`SELECT id, movie_id, movie_title, theatre_name, showroom,
            	start_time, layout_version, layout_checksum
       	 FROM showtimes WHERE id = $1`,
		id,
	).Scan(
		&st.ID, &st.MovieID, &st.MovieTitle, &st.TheatreName, &st.Showroom,
		&st.StartTime, &st.LayoutVersion, &st.LayoutChecksum,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &st, nil
}

func (r *ShowtimeRepo) Seats(ctx context.Context, id uuid.UUID) ([]domain.Seat, error) {
	const op = "postgres.ShowtimeRepo.Seats"

	rows, err := r.db.Query(ctx,
		`SELECT row_label, seat_number, status, hold_id, hold_expires_at
       	 FROM showtime_seats
      	 WHERE showtime_id = $1
      	 ORDER BY row_label, seat_number`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	return scanSeats(op, rows)
}

func (r *ShowtimeRepo) SeatsByRef(
	ctx context.Context,
	id uuid.UUID,
	refs []domain.SeatRef,
) ([]domain.Seat, error) {
	const op = "postgres.ShowtimeRepo.SeatsByRef"

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, ref.Key())
	}

	rows, err := r.db.Query(ctx,
		`SELECT row_label, seat_number, status, hold_id, hold_expires_at
       	 FROM showtime_seats
      	 WHERE showtime_id = $1
        	AND row_label || '-' || seat_number::text = ANY($2)`,
		id, keys,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	return scanSeats(op, rows)
}

func (r *ShowtimeRepo) Counts(ctx context.Context, id uuid.UUID) (*domain.ShowtimeCounts, error) {
	const op = "postgres.ShowtimeRepo.Counts"

	var c domain.ShowtimeCounts
	err := r.db.QueryRow(ctx,
		`SELECT
            count(*) FILTER (WHERE status = 'available'
                             OR (status = 'held' AND hold_expires_at <= now())),
            count(*) FILTER (WHERE status = 'held' AND hold_expires_at > now()),
            count(*) FILTER (WHERE status = 'sold'),
            count(*)
       	 FROM showtime_seats WHERE showtime_id = $1`,
		id,
	).Scan(&c.Available, &c.Held, &c.Sold, &c.Total)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func scanSeats(op string, rows pgx.Rows) ([]domain.Seat, error) {
	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.Row, &s.Number, &s.Status, &s.HeldBy, &s.HeldUntil); err != nil {
			return nil, wrapDBErr(op, err)
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return seats, nil
}
