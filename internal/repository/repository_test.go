package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinealfa/boleteria/internal/database"
	"github.com/cinealfa/boleteria/internal/model"
)

// newTestDB opens a throwaway SQLite database with the full schema
// applied.  The repositories run the same SQL against MySQL in
// production; SQLite keeps the tests hermetic.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), db, "sqlite3"))
	return db
}

func testShowtime() model.ShowtimeKey {
	return model.ShowtimeKey{MovieID: "m1", Fecha: "2026-09-01", Hora: "20:30", Sala: "S1"}
}

func seats(t *testing.T, codes ...string) []model.Seat {
	t.Helper()
	out := make([]model.Seat, 0, len(codes))
	for _, c := range codes {
		s, err := model.ParseSeat(c)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

// inTx runs fn inside a transaction and commits it.
func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}

func at(s string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}
