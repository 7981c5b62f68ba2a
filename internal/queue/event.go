// Package queue defines message payloads exchanged over the message broker.
package queue

// PaymentApprovedQueue is the durable queue approved payments are
// published to and consumed from.
const PaymentApprovedQueue = "payment.approved"

// PaymentApprovedEvent is published when a confirm succeeds.  It carries
// everything the downstream ticket-issuance collaborators (PDF, QR and
// email, all outside this service) need without querying the primary
// database.
type PaymentApprovedEvent struct {
	TransactionID int64    `json:"transaction_id"`
	UsuarioEmail  string   `json:"usuario_email"`
	MovieID       string   `json:"movie_id"`
	Fecha         string   `json:"fecha"`
	Hora          string   `json:"hora"`
	Sala          string   `json:"sala"`
	Seats         []string `json:"seats"`
	AmountCents   int64    `json:"amount_cents"`
	AuthCode      string   `json:"auth_code"`
	ApprovedAt    string   `json:"approved_at"`
}
