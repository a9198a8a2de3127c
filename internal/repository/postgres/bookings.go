package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
)

// BookingRepo is the append-only booking ledger. The one-promo-per-user
// invariant is enforced twice: the service pre-checks with PromoUsed for a
// friendly error, and the partial unique index bookings_user_promo_key backs
// it up under races.
type BookingRepo struct {
	db DB
}

func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	var promo *string
	if b.PromoCode != "" {
		promo = &b.PromoCode
	}

	if err := r.db.QueryRow(ctx,
		`INSERT INTO bookings(
            id, user_id, showtime_id, movie_title, theatre_name, showroom,
            start_time, ticket_count, age_categories, total_cents,
            payment_last4, promo_code)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
      	 RETURNING created_at`,
		b.ID, b.UserID, b.ShowtimeID, b.MovieTitle, b.TheatreName, b.Showroom,
		b.StartTime, b.TicketCount, b.AgeCategories, b.TotalCents,
		b.PaymentLast4, promo,
	).Scan(&b.CreatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, ref := range b.Seats {
		batch.Queue(
			`INSERT INTO booking_seats(booking_id, row_label, seat_number)
         	 VALUES ($1, $2, $3)`,
			b.ID, strings.ToUpper(ref.Row), ref.Number,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	b, err := r.scanBooking(r.db.QueryRow(ctx,
		`SELECT id, user_id, showtime_id, movie_title, theatre_name, showroom,
            	start_time, ticket_count, age_categories, total_cents,
            	payment_last4, promo_code, created_at
       	 FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.attachSeats(ctx, b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByUser"

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, showtime_id, movie_title, theatre_name, showroom,
            	start_time, ticket_count, age_categories, total_cents,
            	payment_last4, promo_code, created_at
       	 FROM bookings
      	 WHERE user_id = $1
      	 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	for i := range out {
		if err := r.attachSeats(ctx, &out[i]); err != nil {
			return nil, wrapDBErr(op, err)
		}
	}

	return out, nil
}

func (r *BookingRepo) PromoUsed(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	const op = "postgres.BookingRepo.PromoUsed"

	var used bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
            SELECT 1 FROM bookings WHERE user_id = $1 AND promo_code = $2)`,
		userID, code,
	).Scan(&used)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return used, nil
}

func (r *BookingRepo) BookedSeatKeys(
	ctx context.Context,
	showtimeID uuid.UUID,
) (map[string]struct{}, error) {
	const op = "postgres.BookingRepo.BookedSeatKeys"

	rows, err := r.db.Query(ctx,
		`SELECT bs.row_label, bs.seat_number
       	 FROM booking_seats bs
       	 JOIN bookings b ON b.id = bs.booking_id
      	 WHERE b.showtime_id = $1`,
		showtimeID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var ref domain.SeatRef
		if err := rows.Scan(&ref.Row, &ref.Number); err != nil {
			return nil, wrapDBErr(op, err)
		}
		keys[ref.Key()] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return keys, nil
}

func (r *BookingRepo) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var promo *string

	if err := row.Scan(
		&b.ID, &b.UserID, &b.ShowtimeID, &b.MovieTitle, &b.TheatreName,
		&b.Showroom, &b.StartTime, &b.TicketCount, &b.AgeCategories,
		&b.TotalCents, &b.PaymentLast4, &promo, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	if promo != nil {
		b.PromoCode = *promo
	}

	return &b, nil
}

func (r *BookingRepo) attachSeats(ctx context.Context, b *domain.Booking) error {
	rows, err := r.db.Query(ctx,
		`SELECT row_label, seat_number FROM booking_seats
      	 WHERE booking_id = $1
      	 ORDER BY row_label, seat_number`,
		b.ID,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var ref domain.SeatRef
		if err := rows.Scan(&ref.Row, &ref.Number); err != nil {
			return err
		}
		b.Seats = append(b.Seats, ref)
	}

	return rows.Err()
}
