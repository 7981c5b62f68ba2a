package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinealfa/boleteria/internal/model"
)

const holdTTL = 600 * time.Second

func TestPlaceAndActiveByToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	err := inTx(t, db, func(tx *sql.Tx) error {
		hold, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7", "C8"), now, holdTTL)
		require.NoError(t, err)
		assert.Equal(t, now, hold.CreatedAt)
		assert.Equal(t, now.Add(holdTTL), hold.ExpiresAt)
		return nil
	})
	require.NoError(t, err)

	hold, err := repo.ActiveByToken(ctx, "tok-a", key, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, []string{"C7", "C8"}, model.SeatCodes(hold.Seats))
	assert.Equal(t, now.Add(holdTTL), hold.ExpiresAt.UTC())
}

func TestPlaceReplacesOwnHold(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7", "C8"), now, holdTTL)
		return err
	}))
	// Re-holding with the same token swaps the selection instead of
	// colliding with its own rows.
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C8", "D1"), now.Add(time.Minute), holdTTL)
		return err
	}))

	hold, err := repo.ActiveByToken(ctx, "tok-a", key, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, []string{"C8", "D1"}, model.SeatCodes(hold.Seats))
}

func TestPlaceUniqueIndexBackstop(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7"), now, holdTTL)
		return err
	}))

	// Direct insert colliding on the seat, bypassing the availability
	// check, must trip the unique index and map to SeatUnavailableError.
	err := inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-b", key, seats(t, "C7"), now, holdTTL)
		return err
	})
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"C7"}, unavailable.Seats)
}

func TestPlaceEmptySeatListIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		hold, err := repo.PlaceTx(context.Background(), tx, "tok-a", testShowtime(), nil, at("2026-09-01 18:00:00"), holdTTL)
		require.NoError(t, err)
		assert.Nil(t, hold)
		return nil
	}))
}

func TestActiveByTokenExpiryBoundary(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")
	expiry := now.Add(holdTTL)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7"), now, holdTTL)
		return err
	}))

	// Alive strictly before expiry, gone from the exact expiry instant.
	hold, err := repo.ActiveByToken(ctx, "tok-a", key, expiry.Add(-time.Second))
	require.NoError(t, err)
	assert.NotNil(t, hold)

	hold, err = repo.ActiveByToken(ctx, "tok-a", key, expiry)
	require.NoError(t, err)
	assert.Nil(t, hold)
}

func TestHeldSeatsExcludesOwnToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		if _, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7"), now, holdTTL); err != nil {
			return err
		}
		_, err := repo.PlaceTx(ctx, tx, "tok-b", key, seats(t, "D1"), now, holdTTL)
		return err
	}))

	all, err := repo.HeldSeats(ctx, key, now.Add(time.Second), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	others, err := repo.HeldSeats(ctx, key, now.Add(time.Second), "tok-a")
	require.NoError(t, err)
	_, hasOwn := others["C7"]
	assert.False(t, hasOwn)
	_, hasOther := others["D1"]
	assert.True(t, hasOther)
}

func TestReleaseIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7", "C8"), now, holdTTL)
		return err
	}))

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		n, err := repo.ReleaseTx(ctx, tx, "tok-a", key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	}))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		n, err := repo.ReleaseTx(ctx, tx, "tok-a", key)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestSweepExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:00:00")

	other := key
	other.Sala = "S2"
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		if _, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7", "C8"), now, holdTTL); err != nil {
			return err
		}
		_, err := repo.PlaceTx(ctx, tx, "tok-b", other, seats(t, "A1"), now.Add(5*time.Minute), holdTTL)
		return err
	}))

	// At exactly tok-a's expiry only its two rows are removable.
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		n, err := repo.SweepExpiredTx(ctx, tx, now.Add(holdTTL))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	}))

	remaining, err := repo.HeldSeats(ctx, other, now.Add(holdTTL), "")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSweepShowtimeLeavesOtherShowtimesAlone(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldRepo(db)
	ctx := context.Background()
	key := testShowtime()
	other := key
	other.Hora = "23:00"
	now := at("2026-09-01 18:00:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		if _, err := repo.PlaceTx(ctx, tx, "tok-a", key, seats(t, "C7"), now, holdTTL); err != nil {
			return err
		}
		_, err := repo.PlaceTx(ctx, tx, "tok-b", other, seats(t, "C7"), now, holdTTL)
		return err
	}))

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		n, err := repo.SweepShowtimeTx(ctx, tx, key, now.Add(holdTTL))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	}))

	// The sibling showtime's expired hold is untouched until its own sweep.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM seat_holds`).Scan(&count))
	assert.Equal(t, 1, count)
}
