package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinealfa/boleteria/internal/model"
)

// TransactionRepo provides data access to the transacciones table, the
// payment-attempt ledger.  A transaction is inserted as PENDING and
// moved to a terminal state exactly once via a conditional update, so
// the read-then-write sequencing never depends on the caller.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Create persists a new PENDING transaction immediately, outside any
// seat transaction, so an audit record exists even if later steps
// crash.  AmountCents is fixed here and never recomputed.
func (r *TransactionRepo) Create(ctx context.Context, usuarioEmail string, amountCents int64, authCode string, meta model.PaymentMeta, now time.Time) (*model.Transaction, error) {
	const query = `INSERT INTO transacciones
		(usuario_email, monto_cents, brand, last4, exp_mes, exp_anio, estado, auth_code, mp_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		usuarioEmail, amountCents,
		nullStr(meta.Brand), nullStr(meta.Last4), nullInt(meta.ExpMes), nullInt(meta.ExpAnio),
		model.TxPending, nullStr(authCode), nullStr(meta.MPReference), fmtTime(now),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Transaction{
		ID:           id,
		UsuarioEmail: usuarioEmail,
		AmountCents:  amountCents,
		Estado:       model.TxPending,
		AuthCode:     authCode,
		Meta:         meta,
		CreatedAt:    now.UTC(),
	}, nil
}

// MarkTx transitions a PENDING transaction to the given terminal state
// within the supplied transaction.  The update is conditional on the
// current state, a compare-and-set at the storage boundary: zero rows
// affected means the transaction either does not exist
// (ErrTransactionNotFound) or has already reached a terminal state
// (ErrInvalidTransition).
func (r *TransactionRepo) MarkTx(ctx context.Context, tx *sql.Tx, id int64, estado string) error {
	return r.mark(ctx, tx, id, estado)
}

// Mark is MarkTx outside a transaction, used on failure paths after the
// seat transaction has been rolled back.
func (r *TransactionRepo) Mark(ctx context.Context, id int64, estado string) error {
	return r.mark(ctx, r.db, id, estado)
}

func (r *TransactionRepo) mark(ctx context.Context, q querier, id int64, estado string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transacciones SET estado = ? WHERE id = ? AND estado = ?`,
		estado, id, model.TxPending,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM transacciones WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrTransactionNotFound
	}
	return ErrInvalidTransition
}

// GetByID returns a single transaction or ErrTransactionNotFound.
func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	const query = `SELECT id, usuario_email, monto_cents, brand, last4, exp_mes, exp_anio, estado, auth_code, mp_reference, created_at
	               FROM transacciones WHERE id = ?`
	trx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	return trx, err
}

// ListRecent returns transactions ordered newest first, for audit
// listings.
func (r *TransactionRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT id, usuario_email, monto_cents, brand, last4, exp_mes, exp_anio, estado, auth_code, mp_reference, created_at
	               FROM transacciones ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *trx)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var trx model.Transaction
	var brand, last4, authCode, mpRef sql.NullString
	var expMes, expAnio sql.NullInt64
	if err := row.Scan(&trx.ID, &trx.UsuarioEmail, &trx.AmountCents,
		&brand, &last4, &expMes, &expAnio,
		&trx.Estado, &authCode, &mpRef, &trx.CreatedAt); err != nil {
		return nil, err
	}
	trx.Meta = model.PaymentMeta{
		Brand:       brand.String,
		Last4:       last4.String,
		ExpMes:      int(expMes.Int64),
		ExpAnio:     int(expAnio.Int64),
		MPReference: mpRef.String,
	}
	trx.AuthCode = authCode.String
	return &trx, nil
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
