// Package repository provides data access to the seat_holds,
// seat_reservas and transacciones tables.  Failure kinds form a closed
// enumeration so that callers branch on cause with errors.Is/errors.As
// instead of inspecting message strings: typed errors carry the seat
// codes involved in a collision, sentinels cover the tokenless cases.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHoldExpired is returned at confirm time when the hold token is
// missing, expired, or placed for a different showtime.  Recoverable:
// the user re-selects seats.
var ErrHoldExpired = errors.New("hold expired or not found")

// ErrInvalidTransition is returned when a transaction that is not
// PENDING is asked to change state.  This is an internal invariant
// violation, not a user-facing condition.
var ErrInvalidTransition = errors.New("transaction is not pending")

// ErrTransactionNotFound is returned when no transaction exists for the
// requested id.
var ErrTransactionNotFound = errors.New("transaction not found")

// SeatUnavailableError reports, at hold time, seats already covered by
// another unexpired hold or by a confirmed reservation.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}

// SeatConflictError reports, at commit time, seats claimed by a
// competing confirmed reservation after the hold was placed.  The
// associated transaction is always RECHAZADA before this error reaches
// the caller.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats no longer available: %s", strings.Join(e.Seats, ", "))
}
