package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Seat identifies a single seat in a room as a row letter plus a
// column number.  Seats are pure values with no lifecycle of their
// own; they are rendered as short codes such as "C7" which is also
// how they are persisted in the seat_code columns.
type Seat struct {
	Row string // row letter, e.g. "C"
	Col int    // column number within the row, 1-based
}

// Code renders the seat as its short code, e.g. "C7".
func (s Seat) Code() string { return fmt.Sprintf("%s%d", s.Row, s.Col) }

// ParseSeat parses a seat code such as "c7" into a Seat.  The row
// portion is upper-cased so that codes compare consistently.  It does
// not check the seat against any room layout; that is the seat map's
// concern.
func ParseSeat(code string) (Seat, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Seat{}, fmt.Errorf("empty seat code")
	}
	i := 0
	for i < len(code) && code[i] >= 'A' && code[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(code) {
		return Seat{}, fmt.Errorf("malformed seat code %q", code)
	}
	col, err := strconv.Atoi(code[i:])
	if err != nil || col <= 0 {
		return Seat{}, fmt.Errorf("malformed seat code %q", code)
	}
	return Seat{Row: code[:i], Col: col}, nil
}

// SeatCodes renders a slice of seats as their short codes, preserving order.
func SeatCodes(seats []Seat) []string {
	codes := make([]string, 0, len(seats))
	for _, s := range seats {
		codes = append(codes, s.Code())
	}
	return codes
}
