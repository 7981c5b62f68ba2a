package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cinealfa/boleteria/internal/model"
)

// timeLayout is the wire format for every timestamp bound into a query.
// All comparisons against expires_at/created_at use strings in this
// layout, stored in UTC, so that MySQL DATETIME and SQLite TEXT columns
// order identically.
const timeLayout = "2006-01-02 15:04:05"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// querier is the subset of *sql.DB and *sql.Tx the repositories need,
// letting read helpers serve both transactional and plain callers.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// showtimeArgs flattens a showtime key into query arguments in column
// order (movie_id, fecha, hora, sala).
func showtimeArgs(key model.ShowtimeKey) []interface{} {
	return []interface{}{key.MovieID, key.Fecha, key.Hora, key.Sala}
}

// isDuplicateEntry reports whether err is a unique-constraint violation.
// MySQL surfaces error 1062; the SQLite driver has no exported error
// type for this, so its constraint message is matched as a fallback.
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
