package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The target schema: temporary seat holds, confirmed reservations and
// the payment-transaction ledger.  The unique indexes on
// (movie_id, fecha, hora, sala, seat_code) in seat_holds and
// seat_reservas are load-bearing: they are the storage-level backstop
// that makes hold placement and reservation commit atomic under
// concurrency.  Schema evolution beyond this bootstrap is out of scope.

var schemaMySQL = []string{
	`CREATE TABLE IF NOT EXISTS seat_holds (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		movie_id   VARCHAR(64)  NOT NULL,
		fecha      VARCHAR(10)  NOT NULL,
		hora       VARCHAR(5)   NOT NULL,
		sala       VARCHAR(64)  NOT NULL,
		seat_code  VARCHAR(8)   NOT NULL,
		token      VARCHAR(64)  NOT NULL,
		expires_at DATETIME     NOT NULL,
		created_at DATETIME     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_holds_show_seat (movie_id, fecha, hora, sala, seat_code),
		KEY idx_holds_token (token),
		KEY idx_holds_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_reservas (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		movie_id      VARCHAR(64)  NOT NULL,
		fecha         VARCHAR(10)  NOT NULL,
		hora          VARCHAR(5)   NOT NULL,
		sala          VARCHAR(64)  NOT NULL,
		seat_code     VARCHAR(8)   NOT NULL,
		usuario_email VARCHAR(255),
		trx_id        BIGINT,
		reserved_at   DATETIME     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_res_show_seat (movie_id, fecha, hora, sala, seat_code),
		KEY idx_res_trx (trx_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS transacciones (
		id            BIGINT NOT NULL AUTO_INCREMENT,
		usuario_email VARCHAR(255) NOT NULL,
		monto_cents   BIGINT       NOT NULL,
		brand         VARCHAR(16),
		last4         VARCHAR(4),
		exp_mes       INT,
		exp_anio      INT,
		estado        VARCHAR(16)  NOT NULL,
		auth_code     VARCHAR(32),
		mp_reference  VARCHAR(64),
		created_at    DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_trx_email (usuario_email),
		KEY idx_trx_fecha (created_at),
		CONSTRAINT chk_trx_estado CHECK (estado IN ('PENDING','APPROVED','RECHAZADA'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS seat_holds (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id   TEXT NOT NULL,
		fecha      TEXT NOT NULL,
		hora       TEXT NOT NULL,
		sala       TEXT NOT NULL,
		seat_code  TEXT NOT NULL,
		token      TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_holds_show_seat
		ON seat_holds(movie_id, fecha, hora, sala, seat_code)`,
	`CREATE INDEX IF NOT EXISTS idx_holds_token ON seat_holds(token)`,
	`CREATE INDEX IF NOT EXISTS idx_holds_expires ON seat_holds(expires_at)`,
	`CREATE TABLE IF NOT EXISTS seat_reservas (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id      TEXT NOT NULL,
		fecha         TEXT NOT NULL,
		hora          TEXT NOT NULL,
		sala          TEXT NOT NULL,
		seat_code     TEXT NOT NULL,
		usuario_email TEXT,
		trx_id        INTEGER,
		reserved_at   DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_res_show_seat
		ON seat_reservas(movie_id, fecha, hora, sala, seat_code)`,
	`CREATE INDEX IF NOT EXISTS idx_res_trx ON seat_reservas(trx_id)`,
	`CREATE TABLE IF NOT EXISTS transacciones (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		usuario_email TEXT    NOT NULL,
		monto_cents   INTEGER NOT NULL,
		brand         TEXT,
		last4         TEXT,
		exp_mes       INTEGER,
		exp_anio      INTEGER,
		estado        TEXT    NOT NULL CHECK (estado IN ('PENDING','APPROVED','RECHAZADA')),
		auth_code     TEXT,
		mp_reference  TEXT,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trx_email ON transacciones(usuario_email)`,
	`CREATE INDEX IF NOT EXISTS idx_trx_fecha ON transacciones(created_at)`,
}

// EnsureSchema creates the seat/hold/transaction tables for the given
// driver if they do not already exist.  It is idempotent and safe to
// run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = schemaMySQL
	case "sqlite3":
		stmts = schemaSQLite
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
