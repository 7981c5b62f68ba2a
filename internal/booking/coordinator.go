// Package booking orchestrates the hold store, the reservation ledger
// and the transaction state machine.  The Coordinator is the sole
// writer of seat and transaction state: handlers and the sweeper call
// its entry points and nothing else mutates those tables.
//
// There is deliberately no global mutex.  Every operation that must be
// atomic, such as placing a hold or committing a reservation, runs inside one
// database transaction whose availability check and insert are backed
// by the unique (showtime, seat_code) indexes, so the storage layer
// serialises colliding writers and the loser fails fast.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cinealfa/boleteria/internal/cache"
	"github.com/cinealfa/boleteria/internal/model"
	"github.com/cinealfa/boleteria/internal/pricing"
	"github.com/cinealfa/boleteria/internal/queue"
	"github.com/cinealfa/boleteria/internal/repository"
	"github.com/cinealfa/boleteria/internal/seatmap"
)

// ErrNoSeats is returned when a hold or quote names no seats at all.
var ErrNoSeats = errors.New("no seats selected")

// TooManySeatsError reports an order exceeding the per-order seat limit.
type TooManySeatsError struct {
	Requested int
	Max       int
}

func (e *TooManySeatsError) Error() string {
	return fmt.Sprintf("cannot select more than %d seats per order (got %d)", e.Max, e.Requested)
}

// EventPublisher publishes approved payments for the downstream
// ticket-issuance collaborators.
type EventPublisher interface {
	PublishPaymentApproved(ctx context.Context, event queue.PaymentApprovedEvent) error
}

// Coordinator implements the hold -> confirm -> release/expire
// lifecycle over the repositories.  Cache and Publisher are optional;
// Now may be overridden to pin the clock.
type Coordinator struct {
	db      *sql.DB
	holds   *repository.HoldRepo
	ledger  *repository.ReservationRepo
	trx     *repository.TransactionRepo
	layout  seatmap.Layout
	pricer  *pricing.Pricer
	holdTTL time.Duration

	Cache     *cache.Availability
	Publisher EventPublisher
	Now       func() time.Time
}

// NewCoordinator wires a Coordinator.  All arguments are required and a
// nil repository is a programming error.
func NewCoordinator(db *sql.DB, holds *repository.HoldRepo, ledger *repository.ReservationRepo, trx *repository.TransactionRepo, layout seatmap.Layout, pricer *pricing.Pricer, holdTTL time.Duration) *Coordinator {
	if db == nil || holds == nil || ledger == nil || trx == nil || pricer == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	if holdTTL <= 0 {
		panic("hold TTL must be positive")
	}
	return &Coordinator{
		db:      db,
		holds:   holds,
		ledger:  ledger,
		trx:     trx,
		layout:  layout,
		pricer:  pricer,
		holdTTL: holdTTL,
		Now:     time.Now,
	}
}

// Layout exposes the room layout for availability rendering.
func (c *Coordinator) Layout() seatmap.Layout { return c.layout }

// HoldTTL exposes the configured hold lifetime.
func (c *Coordinator) HoldTTL() time.Duration { return c.holdTTL }

// Quote computes the deterministic server-side total for seatCount
// tickets plus the selected combos.  Client-supplied amounts are never
// consulted.
func (c *Coordinator) Quote(seatCount int, comboIDs []int) (pricing.Quote, error) {
	return c.pricer.Quote(seatCount, comboIDs)
}

// Hold places a temporary claim on the named seats for the showtime.
// The whole request is claimed or nothing is: validation against the
// room layout and order limit happens first, expired holds for the
// showtime are swept eagerly (so correctness never depends on the
// background sweeper), and the availability check plus insert run in
// one transaction.  A collision fails immediately with
// *repository.SeatUnavailableError naming the contested seats; first
// come, first served, no queueing.
func (c *Coordinator) Hold(ctx context.Context, token string, key model.ShowtimeKey, seatCodes []string) (*model.SeatHold, error) {
	seats, err := c.layout.ParseAll(seatCodes)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}
	if !c.layout.WithinOrderLimit(len(seats)) {
		return nil, &TooManySeatsError{Requested: len(seats), Max: c.layout.MaxPerOrder}
	}

	now := c.Now().UTC()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := c.holds.SweepShowtimeTx(ctx, tx, key, now); err != nil {
		return nil, err
	}

	occupied, err := c.occupiedTx(ctx, tx, key, now, token)
	if err != nil {
		return nil, err
	}
	var conflicts []string
	for _, s := range seats {
		if _, taken := occupied[s.Code()]; taken {
			conflicts = append(conflicts, s.Code())
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, &repository.SeatUnavailableError{Seats: conflicts}
	}

	hold, err := c.holds.PlaceTx(ctx, tx, token, key, seats, now, c.holdTTL)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	c.Cache.Invalidate(ctx, key)
	return hold, nil
}

// Release drops the hold for token and showtime.  Idempotent and always
// safe to call, including after expiry.
func (c *Coordinator) Release(ctx context.Context, token string, key model.ShowtimeKey) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := c.holds.ReleaseTx(ctx, tx, token, key); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	c.Cache.Invalidate(ctx, key)
	return nil
}

// Confirm finalises a hold after payment.  The PENDING transaction is
// created before any seat state is touched so an audit record exists on
// every path.  The hold lookup, ledger commit, hold release and the
// APPROVED transition then run in a single database transaction: either
// the transaction ends APPROVED with all seats committed, or it ends
// RECHAZADA with none.  A missing or expired hold fails with
// repository.ErrHoldExpired; a seat claimed by a competing confirmed
// reservation fails with *repository.SeatConflictError.  In both cases
// the transaction is RECHAZADA before the error is returned.  Storage
// failures propagate as-is: a confirm that cannot determine success
// never reports APPROVED.
func (c *Coordinator) Confirm(ctx context.Context, token string, key model.ShowtimeKey, usuarioEmail string, amountCents int64, meta model.PaymentMeta) (*model.Transaction, []model.Seat, error) {
	now := c.Now().UTC()
	trx, err := c.trx.Create(ctx, usuarioEmail, amountCents, authCode(meta.Last4, now), meta, now)
	if err != nil {
		return nil, nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return trx, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hold, err := c.holds.ActiveByTokenTx(ctx, tx, token, key, now)
	if err != nil {
		return trx, nil, err
	}
	if hold == nil {
		_ = tx.Rollback()
		c.reject(ctx, trx)
		return trx, nil, repository.ErrHoldExpired
	}

	confirmed, err := c.ledger.CommitTx(ctx, tx, key, hold.Seats, trx.ID, usuarioEmail, now)
	if err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			_ = tx.Rollback()
			c.reject(ctx, trx)
		}
		return trx, nil, err
	}

	if _, err := c.holds.ReleaseTx(ctx, tx, token, key); err != nil {
		return trx, nil, err
	}
	if err := c.trx.MarkTx(ctx, tx, trx.ID, model.TxApproved); err != nil {
		// Only this orchestration transitions transactions, so a
		// non-PENDING row here is an internal defect.
		log.Printf("booking: approve transition failed for trx %d: %v", trx.ID, err)
		return trx, nil, err
	}
	if err := tx.Commit(); err != nil {
		return trx, nil, err
	}
	committed = true
	trx.Estado = model.TxApproved

	c.Cache.Invalidate(ctx, key)
	c.publishApproved(ctx, trx, key, confirmed, now)
	return trx, confirmed, nil
}

// ReleaseExpired removes every hold whose TTL has elapsed, across all
// showtimes, and returns the number removed.  Called by the periodic
// sweeper and runnable eagerly at any time.
func (c *Coordinator) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	removed, err := c.holds.SweepExpiredTx(ctx, tx, now.UTC())
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return removed, nil
}

// GetHold returns the caller's live hold, or nil when none exists.
func (c *Coordinator) GetHold(ctx context.Context, token string, key model.ShowtimeKey) (*model.SeatHold, error) {
	return c.holds.ActiveByToken(ctx, token, key, c.Now().UTC())
}

// Availability returns the occupied seat codes (confirmed reservations
// plus unexpired holds) for the showtime, sorted.  When excludeToken is
// non-empty that session's own held seats are omitted so it can re-draw
// its selection; those responses bypass the cache.
func (c *Coordinator) Availability(ctx context.Context, key model.ShowtimeKey, excludeToken string) ([]string, error) {
	if excludeToken == "" {
		if seats, ok := c.Cache.Get(ctx, key); ok {
			return seats, nil
		}
	}
	now := c.Now().UTC()
	confirmed, err := c.ledger.SeatsConfirmed(ctx, key)
	if err != nil {
		return nil, err
	}
	held, err := c.holds.HeldSeats(ctx, key, now, excludeToken)
	if err != nil {
		return nil, err
	}
	occupied := make([]string, 0, len(confirmed)+len(held))
	for code := range confirmed {
		occupied = append(occupied, code)
	}
	for code := range held {
		if _, dup := confirmed[code]; !dup {
			occupied = append(occupied, code)
		}
	}
	sort.Strings(occupied)
	if excludeToken == "" {
		c.Cache.Set(ctx, key, occupied)
	}
	return occupied, nil
}

// Transaction returns a transaction by id for audit reads.
func (c *Coordinator) Transaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return c.trx.GetByID(ctx, id)
}

// Transactions returns recent transactions, newest first.
func (c *Coordinator) Transactions(ctx context.Context, limit, offset int) ([]model.Transaction, error) {
	return c.trx.ListRecent(ctx, limit, offset)
}

// occupiedTx collects confirmed reservations plus other sessions'
// unexpired holds within the caller's transaction.
func (c *Coordinator) occupiedTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey, now time.Time, excludeToken string) (map[string]struct{}, error) {
	occupied, err := c.ledger.SeatsConfirmedTx(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	held, err := c.holds.HeldSeatsTx(ctx, tx, key, now, excludeToken)
	if err != nil {
		return nil, err
	}
	for code := range held {
		occupied[code] = struct{}{}
	}
	return occupied, nil
}

// reject moves a transaction to RECHAZADA after the seat transaction
// has been rolled back, keeping the audit trail terminal on every
// collision path.
func (c *Coordinator) reject(ctx context.Context, trx *model.Transaction) {
	if err := c.trx.Mark(ctx, trx.ID, model.TxRejected); err != nil {
		log.Printf("booking: reject transition failed for trx %d: %v", trx.ID, err)
		return
	}
	trx.Estado = model.TxRejected
}

func (c *Coordinator) publishApproved(ctx context.Context, trx *model.Transaction, key model.ShowtimeKey, seats []model.Seat, now time.Time) {
	if c.Publisher == nil {
		return
	}
	event := queue.PaymentApprovedEvent{
		TransactionID: trx.ID,
		UsuarioEmail:  trx.UsuarioEmail,
		MovieID:       key.MovieID,
		Fecha:         key.Fecha,
		Hora:          key.Hora,
		Sala:          key.Sala,
		Seats:         model.SeatCodes(seats),
		AmountCents:   trx.AmountCents,
		AuthCode:      trx.AuthCode,
		ApprovedAt:    now.Format(time.RFC3339),
	}
	if err := c.Publisher.PublishPaymentApproved(ctx, event); err != nil {
		log.Printf("booking: publish payment.approved failed for trx %d: %v", trx.ID, err)
	}
}

// authCode derives the authorization code recorded on a transaction,
// e.g. "APP-4242-153045".
func authCode(last4 string, now time.Time) string {
	if last4 == "" {
		last4 = "0000"
	}
	return fmt.Sprintf("APP-%s-%s", last4, now.Format("150405"))
}
