package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinealfa/boleteria/internal/model"
)

// HoldRepo provides data access to the seat_holds table: short-lived,
// per-token claims on seats for a specific showtime.  A hold is active
// while expires_at > now and sweep-eligible from expires_at <= now.
// All timestamps are UTC.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// PlaceTx inserts a hold covering every seat in seats as one atomic
// unit within the supplied transaction.  A previous hold by the same
// token for the same showtime is replaced.  The caller is expected to
// have checked availability inside the same transaction; the unique
// index on (showtime, seat_code) is the backstop for the race that
// check cannot see, and a constraint violation surfaces here as
// *SeatUnavailableError.  Partial holds are never created: any failure
// leaves the transaction to be rolled back by the caller.  An empty
// seat slice is a no-op returning a nil hold.
func (r *HoldRepo) PlaceTx(ctx context.Context, tx *sql.Tx, token string, key model.ShowtimeKey, seats []model.Seat, now time.Time, ttl time.Duration) (*model.SeatHold, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	// Replace this token's previous claim for the showtime, if any.
	if _, err := r.releaseTx(ctx, tx, token, key); err != nil {
		return nil, err
	}

	createdAt := now.UTC()
	expiresAt := createdAt.Add(ttl)

	query := `INSERT INTO seat_holds (movie_id, fecha, hora, sala, seat_code, token, expires_at, created_at) VALUES `
	args := make([]interface{}, 0, len(seats)*8)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, key.MovieID, key.Fecha, key.Hora, key.Sala, s.Code(), token, fmtTime(expiresAt), fmtTime(createdAt))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return nil, &SeatUnavailableError{Seats: model.SeatCodes(seats)}
		}
		return nil, err
	}
	return &model.SeatHold{
		Token:     token,
		Showtime:  key,
		Seats:     seats,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// ActiveByTokenTx returns the unexpired hold for token and showtime, or
// nil when none exists.  Expired rows are treated as absent even before
// a sweep has physically removed them.
func (r *HoldRepo) ActiveByTokenTx(ctx context.Context, tx *sql.Tx, token string, key model.ShowtimeKey, now time.Time) (*model.SeatHold, error) {
	return r.activeByToken(ctx, tx, token, key, now)
}

// ActiveByToken is ActiveByTokenTx outside a transaction, for read-only
// callers such as the availability endpoint.
func (r *HoldRepo) ActiveByToken(ctx context.Context, token string, key model.ShowtimeKey, now time.Time) (*model.SeatHold, error) {
	return r.activeByToken(ctx, r.db, token, key, now)
}

func (r *HoldRepo) activeByToken(ctx context.Context, q querier, token string, key model.ShowtimeKey, now time.Time) (*model.SeatHold, error) {
	const query = `SELECT seat_code, expires_at, created_at FROM seat_holds
	               WHERE token = ? AND movie_id = ? AND fecha = ? AND hora = ? AND sala = ?
	                 AND expires_at > ?
	               ORDER BY seat_code`
	args := append([]interface{}{token}, showtimeArgs(key)...)
	args = append(args, fmtTime(now))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hold := &model.SeatHold{Token: token, Showtime: key}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code, &hold.ExpiresAt, &hold.CreatedAt); err != nil {
			return nil, err
		}
		seat, err := model.ParseSeat(code)
		if err != nil {
			return nil, err
		}
		hold.Seats = append(hold.Seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(hold.Seats) == 0 {
		return nil, nil
	}
	return hold, nil
}

// HeldSeatsTx returns the seat codes covered by unexpired holds for the
// showtime, excluding excludeToken's own rows when it is non-empty so a
// session sees its own seats as available to itself.
func (r *HoldRepo) HeldSeatsTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey, now time.Time, excludeToken string) (map[string]struct{}, error) {
	return r.heldSeats(ctx, tx, key, now, excludeToken)
}

// HeldSeats is HeldSeatsTx outside a transaction.
func (r *HoldRepo) HeldSeats(ctx context.Context, key model.ShowtimeKey, now time.Time, excludeToken string) (map[string]struct{}, error) {
	return r.heldSeats(ctx, r.db, key, now, excludeToken)
}

func (r *HoldRepo) heldSeats(ctx context.Context, q querier, key model.ShowtimeKey, now time.Time, excludeToken string) (map[string]struct{}, error) {
	query := `SELECT seat_code FROM seat_holds
	          WHERE movie_id = ? AND fecha = ? AND hora = ? AND sala = ?
	            AND expires_at > ?`
	args := append(showtimeArgs(key), fmtTime(now))
	if excludeToken != "" {
		query += " AND token <> ?"
		args = append(args, excludeToken)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	held := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		held[code] = struct{}{}
	}
	return held, rows.Err()
}

// ReleaseTx removes the hold for token and showtime.  Idempotent:
// releasing an absent hold affects zero rows and is not an error.
func (r *HoldRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, token string, key model.ShowtimeKey) (int64, error) {
	return r.releaseTx(ctx, tx, token, key)
}

func (r *HoldRepo) releaseTx(ctx context.Context, q querier, token string, key model.ShowtimeKey) (int64, error) {
	const query = `DELETE FROM seat_holds WHERE token = ? AND movie_id = ? AND fecha = ? AND hora = ? AND sala = ?`
	args := append([]interface{}{token}, showtimeArgs(key)...)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SweepExpiredTx removes every hold with expires_at <= now and returns
// the number removed.  Safe to call concurrently and repeatedly; a
// sweep that finds nothing returns zero, not an error.
func (r *HoldRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE expires_at <= ?`, fmtTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepShowtimeTx is SweepExpiredTx restricted to one showtime, used as
// the eager self-healing sweep before an availability check.
func (r *HoldRepo) SweepShowtimeTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey, now time.Time) (int64, error) {
	query := `DELETE FROM seat_holds WHERE movie_id = ? AND fecha = ? AND hora = ? AND sala = ? AND expires_at <= ?`
	args := append(showtimeArgs(key), fmtTime(now))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
