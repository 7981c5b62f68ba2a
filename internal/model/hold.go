package model

import "time"

// SeatHold represents one checkout session's temporary claim on a set
// of seats for a showtime.  Holds prevent concurrent checkouts from
// grabbing the same seat while a user completes payment, and they
// expire automatically once ExpiresAt has passed.
//
// Fields:
//  Token     – opaque session identifier, unique per checkout attempt.
//  Showtime  – screening the seats belong to.
//  Seats     – seats claimed by this hold; never a partial subset.
//  CreatedAt – when the hold was placed.
//  ExpiresAt – CreatedAt plus the configured hold TTL.
type SeatHold struct {
	Token     string      `json:"token"`
	Showtime  ShowtimeKey `json:"showtime"`
	Seats     []Seat      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}
