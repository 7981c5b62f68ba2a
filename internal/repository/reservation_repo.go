package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/cinealfa/boleteria/internal/model"
)

// ReservationRepo provides data access to the seat_reservas table, the
// durable ledger of seats permanently assigned to a showtime.  Rows are
// written once by CommitTx and never updated; removal is left to
// external data-retention tooling.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// SeatsConfirmedTx returns the set of seat codes already reserved for
// the showtime, for use inside an availability check transaction.
func (r *ReservationRepo) SeatsConfirmedTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey) (map[string]struct{}, error) {
	return r.seatsConfirmed(ctx, tx, key)
}

// SeatsConfirmed is SeatsConfirmedTx outside a transaction.
func (r *ReservationRepo) SeatsConfirmed(ctx context.Context, key model.ShowtimeKey) (map[string]struct{}, error) {
	return r.seatsConfirmed(ctx, r.db, key)
}

func (r *ReservationRepo) seatsConfirmed(ctx context.Context, q querier, key model.ShowtimeKey) (map[string]struct{}, error) {
	const query = `SELECT seat_code FROM seat_reservas WHERE movie_id = ? AND fecha = ? AND hora = ? AND sala = ?`
	rows, err := q.QueryContext(ctx, query, showtimeArgs(key)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	confirmed := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		confirmed[code] = struct{}{}
	}
	return confirmed, rows.Err()
}

// CommitTx permanently assigns seats to the showtime within the
// supplied transaction.  It re-checks the ledger at commit time and
// fails with *SeatConflictError if any seat is already reserved. This
// defends against the race the hold mechanism alone cannot close, such
// as a hold that expired between validation and commit.  The check and
// the inserts run in one transaction with the unique index on
// (showtime, seat_code) as the atomic backstop, so either every seat is
// committed or none is.  Returns the confirmed seats sorted by code.
func (r *ReservationRepo) CommitTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey, seats []model.Seat, trxID int64, usuarioEmail string, now time.Time) ([]model.Seat, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	taken, err := r.seatsConfirmed(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	var conflicts []string
	for _, s := range seats {
		if _, ok := taken[s.Code()]; ok {
			conflicts = append(conflicts, s.Code())
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, &SeatConflictError{Seats: conflicts}
	}

	query := `INSERT INTO seat_reservas (movie_id, fecha, hora, sala, seat_code, usuario_email, trx_id, reserved_at) VALUES `
	args := make([]interface{}, 0, len(seats)*8)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, key.MovieID, key.Fecha, key.Hora, key.Sala, s.Code(), usuarioEmail, trxID, fmtTime(now))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return nil, &SeatConflictError{Seats: model.SeatCodes(seats)}
		}
		return nil, err
	}

	confirmed := make([]model.Seat, len(seats))
	copy(confirmed, seats)
	sort.Slice(confirmed, func(i, j int) bool { return confirmed[i].Code() < confirmed[j].Code() })
	return confirmed, nil
}

// ListByTransaction returns the reservations created by one transaction,
// for audit reads.  An unknown transaction yields an empty slice.
func (r *ReservationRepo) ListByTransaction(ctx context.Context, trxID int64) ([]model.Reservation, error) {
	const query = `SELECT id, movie_id, fecha, hora, sala, seat_code, usuario_email, reserved_at
	               FROM seat_reservas WHERE trx_id = ? ORDER BY seat_code`
	rows, err := r.db.QueryContext(ctx, query, trxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		var code string
		var email sql.NullString
		if err := rows.Scan(&res.ID, &res.Showtime.MovieID, &res.Showtime.Fecha, &res.Showtime.Hora,
			&res.Showtime.Sala, &code, &email, &res.ReservedAt); err != nil {
			return nil, err
		}
		seat, err := model.ParseSeat(code)
		if err != nil {
			return nil, err
		}
		res.Seat = seat
		res.TrxID = trxID
		res.UsuarioEmail = email.String
		out = append(out, res)
	}
	return out, rows.Err()
}
