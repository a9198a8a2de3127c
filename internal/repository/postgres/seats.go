package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bulldogcinemas/cinema-go/internal/domain"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

// SeatRepo implements the single-seat conditional transitions as guarded
// UPDATEs: the precondition lives in the WHERE clause, so two concurrent
// writers can never both flip the same seat in the same window. This is the
// row-level analogue of the seat-map array-filter update the frontends rely on.
type SeatRepo struct {
	db DB
}

// Claim transitions one seat to held. The guard admits three states: free,
// held-but-lapsed (lazy expiry reclaims it), and held by this same holdID
// (retry re-confirms and refreshes the expiry instead of conflicting).
func (r *SeatRepo) Claim(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
	holdID uuid.UUID,
	until time.Time,
) error {
	const op = "postgres.SeatRepo.Claim"

	tag, err := r.db.Exec(ctx,
		`UPDATE showtime_seats
        	SET status = 'held', hold_id = $4, hold_expires_at = $5
      	 WHERE showtime_id = $1 AND row_label = $2 AND seat_number = $3
        	AND (status = 'available'
             OR (status = 'held' AND hold_expires_at <= now())
             OR (status = 'held' AND hold_id = $4))`,
		showtimeID, strings.ToUpper(ref.Row), ref.Number, holdID, until,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, r.claimFailure(ctx, showtimeID, ref))
	}

	return nil
}

// claimFailure re-reads the seat to name the reason a guarded claim matched
// nothing. The read is diagnostic only; the guard already decided the outcome.
func (r *SeatRepo) claimFailure(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
) error {
	var status domain.SeatStatus
	err := r.db.QueryRow(ctx,
		`SELECT status FROM showtime_seats
      	 WHERE showtime_id = $1 AND row_label = $2 AND seat_number = $3`,
		showtimeID, strings.ToUpper(ref.Row), ref.Number,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrSeatNotFound
		}
		return err
	}

	if status == domain.SeatSold {
		return repository.ErrSeatSold
	}

	return repository.ErrSeatHeld
}

// Sell transitions held -> sold, but only for the holder and only while the
// hold is alive. A lapsed hold fails here even if nobody else claimed the
// seat yet; paying after the hold timed out is never silently accepted.
func (r *SeatRepo) Sell(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
	holdID uuid.UUID,
) error {
	const op = "postgres.SeatRepo.Sell"

	tag, err := r.db.Exec(ctx,
		`UPDATE showtime_seats
        	SET status = 'sold', hold_id = NULL, hold_expires_at = NULL
      	 WHERE showtime_id = $1 AND row_label = $2 AND seat_number = $3
        	AND status = 'held' AND hold_id = $4 AND hold_expires_at > now()`,
		showtimeID, strings.ToUpper(ref.Row), ref.Number, holdID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, r.sellFailure(ctx, showtimeID, ref, holdID))
	}

	return nil
}

func (r *SeatRepo) sellFailure(
	ctx context.Context,
	showtimeID uuid.UUID,
	ref domain.SeatRef,
	holdID uuid.UUID,
) error {
	var status domain.SeatStatus
	var heldBy *uuid.UUID
	var heldUntil *time.Time

	err := r.db.QueryRow(ctx,
		`SELECT status, hold_id, hold_expires_at FROM showtime_seats
      	 WHERE showtime_id = $1 AND row_label = $2 AND seat_number = $3`,
		showtimeID, strings.ToUpper(ref.Row), ref.Number,
	).Scan(&status, &heldBy, &heldUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrSeatNotFound
		}
		return err
	}

	switch {
	case status == domain.SeatSold:
		return repository.ErrSeatSold
	case status == domain.SeatHeld && heldBy != nil && *heldBy == holdID:
		return repository.ErrHoldExpired
	default:
		return repository.ErrSeatNotHeld
	}
}

// MarkSold sets seats to sold with no hold precondition. Only the legacy
// direct-booking path uses it.
func (r *SeatRepo) MarkSold(
	ctx context.Context,
	showtimeID uuid.UUID,
	refs []domain.SeatRef,
) error {
	const op = "postgres.SeatRepo.MarkSold"

	batch := &pgx.Batch{}
	for _, ref := range refs {
		batch.Queue(
			`UPDATE showtime_seats
            	SET status = 'sold', hold_id = NULL, hold_expires_at = NULL
          	 WHERE showtime_id = $1 AND row_label = $2 AND seat_number = $3`,
			showtimeID, strings.ToUpper(ref.Row), ref.Number,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ReleaseHold returns every seat held by holdID to available. Zero matched
// seats is a successful no-op, which makes release idempotent.
func (r *SeatRepo) ReleaseHold(
	ctx context.Context,
	showtimeID uuid.UUID,
	holdID uuid.UUID,
) (int64, error) {
	const op = "postgres.SeatRepo.ReleaseHold"

	tag, err := r.db.Exec(ctx,
		`UPDATE showtime_seats
        	SET status = 'available', hold_id = NULL, hold_expires_at = NULL
      	 WHERE showtime_id = $1 AND status = 'held' AND hold_id = $2`,
		showtimeID, holdID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// ReleaseExpired is the lazy sweep: reset every lapsed hold on the showtime.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	const op = "postgres.SeatRepo.ReleaseExpired"

	tag, err := r.db.Exec(ctx,
		`UPDATE showtime_seats
        	SET status = 'available', hold_id = NULL, hold_expires_at = NULL
      	 WHERE showtime_id = $1
        	AND status = 'held'
        	AND hold_expires_at <= now()`,
		showtimeID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// ReleaseAllExpired sweeps lapsed holds across all showtimes at once.
func (r *SeatRepo) ReleaseAllExpired(ctx context.Context) (int64, error) {
	const op = "postgres.SeatRepo.ReleaseAllExpired"

	tag, err := r.db.Exec(ctx,
		`UPDATE showtime_seats
        	SET status = 'available', hold_id = NULL, hold_expires_at = NULL
      	 WHERE status = 'held'
        	AND hold_expires_at <= now()`,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}
