package model

import "time"

// Transaction states.  A transaction is created PENDING before any
// ledger mutation and is moved to exactly one of the two terminal
// states afterwards; there are no other transitions.
const (
	TxPending  = "PENDING"
	TxApproved = "APPROVED"
	TxRejected = "RECHAZADA"
)

// PaymentMeta carries the payment-method details recorded alongside a
// transaction.  Card validation happens outside this core; by the time
// a confirm reaches us the brand/last4 (or the MercadoPago reference,
// for gateway payments) are just values to persist for the audit trail.
type PaymentMeta struct {
	Brand       string `json:"brand,omitempty"`
	Last4       string `json:"last4,omitempty"`
	ExpMes      int    `json:"exp_mes,omitempty"`
	ExpAnio     int    `json:"exp_anio,omitempty"`
	MPReference string `json:"mp_reference,omitempty"`
}

// Transaction records one payment attempt.
//
// Fields:
//  ID           – auto-incrementing primary key.
//  UsuarioEmail – buyer's email address.
//  AmountCents  – server-computed total in cents; fixed at creation and
//                 never recomputed afterwards.
//  Estado       – one of TxPending, TxApproved, TxRejected.
//  AuthCode     – authorization code issued on creation.
//  Meta         – payment-method metadata (brand/last4 or MP reference).
//  CreatedAt    – when the attempt was recorded.
type Transaction struct {
	ID           int64       `json:"id"`
	UsuarioEmail string      `json:"usuario_email"`
	AmountCents  int64       `json:"amount_cents"`
	Estado       string      `json:"estado"`
	AuthCode     string      `json:"auth_code"`
	Meta         PaymentMeta `json:"payment,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
