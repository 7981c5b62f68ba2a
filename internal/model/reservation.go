package model

import "time"

// Reservation is a seat permanently assigned to a showtime after a
// successful payment.  Reservations are immutable once created; there
// is one row per seat, linked to the transaction that paid for it.
type Reservation struct {
	ID           int64       // seat_reservas.id
	Showtime     ShowtimeKey // movie_id/fecha/hora/sala columns
	Seat         Seat        // seat_reservas.seat_code
	TrxID        int64       // seat_reservas.trx_id
	UsuarioEmail string      // seat_reservas.usuario_email
	ReservedAt   time.Time   // seat_reservas.reserved_at
}
