package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinealfa/boleteria/internal/model"
)

func TestCommitAndSeatsConfirmed(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:10:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		confirmed, err := repo.CommitTx(ctx, tx, key, seats(t, "C8", "C7"), 1, "ana@example.com", now)
		require.NoError(t, err)
		// Sorted by code regardless of request order.
		assert.Equal(t, []string{"C7", "C8"}, model.SeatCodes(confirmed))
		return nil
	}))

	taken, err := repo.SeatsConfirmed(ctx, key)
	require.NoError(t, err)
	assert.Len(t, taken, 2)
	_, ok := taken["C7"]
	assert.True(t, ok)
}

func TestCommitConflictIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:10:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.CommitTx(ctx, tx, key, seats(t, "C7"), 1, "ana@example.com", now)
		return err
	}))

	err := inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.CommitTx(ctx, tx, key, seats(t, "C7", "C8"), 2, "leo@example.com", now)
		return err
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"C7"}, conflict.Seats)

	// The non-contested seat must not have been committed either.
	taken, err := repo.SeatsConfirmed(ctx, key)
	require.NoError(t, err)
	assert.Len(t, taken, 1)
}

func TestCommitEmptySeatListIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepo(db)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		confirmed, err := repo.CommitTx(context.Background(), tx, testShowtime(), nil, 1, "a@example.com", at("2026-09-01 18:10:00"))
		require.NoError(t, err)
		assert.Empty(t, confirmed)
		return nil
	}))
}

func TestListByTransaction(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	key := testShowtime()
	now := at("2026-09-01 18:10:00")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		if _, err := repo.CommitTx(ctx, tx, key, seats(t, "C7", "C8"), 42, "ana@example.com", now); err != nil {
			return err
		}
		_, err := repo.CommitTx(ctx, tx, key, seats(t, "D1"), 43, "leo@example.com", now)
		return err
	}))

	list, err := repo.ListByTransaction(ctx, 42)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "C7", list[0].Seat.Code())
	assert.Equal(t, int64(42), list[0].TrxID)
	assert.Equal(t, "ana@example.com", list[0].UsuarioEmail)
	assert.Equal(t, key, list[0].Showtime)

	none, err := repo.ListByTransaction(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
