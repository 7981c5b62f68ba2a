// Package seatmap describes the valid seat identifiers for a room
// layout and enforces the simple per-order capacity rule.  It is pure
// data: the layout is fixed at startup from configuration and an
// invalid layout is fatal then, never at request time.
package seatmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cinealfa/boleteria/internal/model"
)

// Layout describes a rectangular room: one row per letter in Rows and
// Cols seats per row, plus the maximum number of seats a single order
// may claim.
type Layout struct {
	Rows        string // row letters in order, e.g. "ABCDEFGHIJ"
	Cols        int    // seats per row
	MaxPerOrder int    // maximum seats per order
}

// UnknownSeatError reports a seat code that does not exist in the layout.
type UnknownSeatError struct {
	Code string
}

func (e *UnknownSeatError) Error() string {
	return fmt.Sprintf("seat %s does not exist in this room", e.Code)
}

// Validate checks the layout configuration.  It is intended to run once
// at startup; any error here is a configuration defect.
func (l Layout) Validate() error {
	if len(l.Rows) == 0 {
		return fmt.Errorf("seatmap: no rows configured")
	}
	seen := make(map[byte]struct{}, len(l.Rows))
	for i := 0; i < len(l.Rows); i++ {
		r := l.Rows[i]
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("seatmap: invalid row letter %q", string(r))
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("seatmap: duplicate row letter %q", string(r))
		}
		seen[r] = struct{}{}
	}
	if l.Cols <= 0 {
		return fmt.Errorf("seatmap: cols must be positive, got %d", l.Cols)
	}
	if l.MaxPerOrder <= 0 {
		return fmt.Errorf("seatmap: max seats per order must be positive, got %d", l.MaxPerOrder)
	}
	return nil
}

// Contains reports whether the seat exists in the layout.
func (l Layout) Contains(s model.Seat) bool {
	if len(s.Row) != 1 || !strings.Contains(l.Rows, s.Row) {
		return false
	}
	return s.Col >= 1 && s.Col <= l.Cols
}

// WithinOrderLimit reports whether an order for count seats is allowed.
func (l Layout) WithinOrderLimit(count int) bool {
	return count > 0 && count <= l.MaxPerOrder
}

// ValidSeats returns every seat in the layout, sorted by code.
func (l Layout) ValidSeats() []model.Seat {
	seats := make([]model.Seat, 0, len(l.Rows)*l.Cols)
	for i := 0; i < len(l.Rows); i++ {
		for c := 1; c <= l.Cols; c++ {
			seats = append(seats, model.Seat{Row: string(l.Rows[i]), Col: c})
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Code() < seats[j].Code() })
	return seats
}

// ParseAll parses and deduplicates a list of seat codes, rejecting any
// code that does not exist in the layout.  Order of first appearance is
// preserved.
func (l Layout) ParseAll(codes []string) ([]model.Seat, error) {
	seats := make([]model.Seat, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		s, err := model.ParseSeat(code)
		if err != nil {
			return nil, &UnknownSeatError{Code: strings.ToUpper(strings.TrimSpace(code))}
		}
		if !l.Contains(s) {
			return nil, &UnknownSeatError{Code: s.Code()}
		}
		if _, ok := seen[s.Code()]; ok {
			continue
		}
		seen[s.Code()] = struct{}{}
		seats = append(seats, s)
	}
	return seats, nil
}
