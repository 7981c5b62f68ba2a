package booking

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinealfa/boleteria/internal/database"
	"github.com/cinealfa/boleteria/internal/model"
	"github.com/cinealfa/boleteria/internal/pricing"
	"github.com/cinealfa/boleteria/internal/queue"
	"github.com/cinealfa/boleteria/internal/repository"
	"github.com/cinealfa/boleteria/internal/seatmap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []queue.PaymentApprovedEvent
}

func (p *capturingPublisher) PublishPaymentApproved(_ context.Context, e queue.PaymentApprovedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeClock, *sql.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), db, "sqlite3"))

	layout := seatmap.Layout{Rows: "ABCDEFGHIJ", Cols: 12, MaxPerOrder: 6}
	require.NoError(t, layout.Validate())
	pricer, err := pricing.NewPricer("5000", pricing.DefaultCatalog())
	require.NoError(t, err)

	coord := NewCoordinator(
		db,
		repository.NewHoldRepo(db),
		repository.NewReservationRepo(db),
		repository.NewTransactionRepo(db),
		layout,
		pricer,
		600*time.Second,
	)
	clock := &fakeClock{now: time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)}
	coord.Now = clock.Now
	return coord, clock, db
}

func showtime() model.ShowtimeKey {
	return model.ShowtimeKey{MovieID: "m1", Fecha: "2026-09-01", Hora: "20:30", Sala: "S1"}
}

func TestHoldLifecycle(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	hold, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C7", "C8"}, model.SeatCodes(hold.Seats))
	assert.Equal(t, clock.Now().Add(600*time.Second), hold.ExpiresAt)

	// A competing session overlapping on C8 loses the whole request.
	_, err = coord.Hold(ctx, "tok-b", key, []string{"C8", "C9"})
	var unavailable *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"C8"}, unavailable.Seats)

	// Nothing of the losing request may remain held.
	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C7", "C8"}, occupied)
}

func TestHoldValidation(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"Z99"})
	var unknown *seatmap.UnknownSeatError
	assert.ErrorAs(t, err, &unknown)

	_, err = coord.Hold(ctx, "tok-a", key, []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"})
	var tooMany *TooManySeatsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 7, tooMany.Requested)

	_, err = coord.Hold(ctx, "tok-a", key, []string{"", "  "})
	assert.ErrorIs(t, err, ErrNoSeats)
}

func TestReHoldReplacesSelection(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)
	hold, err := coord.Hold(ctx, "tok-a", key, []string{"C8", "D1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C8", "D1"}, model.SeatCodes(hold.Seats))

	// C7 went back to the pool with the replacement.
	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C8", "D1"}, occupied)
}

func TestConfirmApprovesAndCommitsSeats(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	pub := &capturingPublisher{}
	coord.Publisher = pub
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)

	clock.Advance(200 * time.Second)
	quote, err := coord.Quote(2, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1000000), quote.TotalCents)

	meta := model.PaymentMeta{Brand: "VISA", Last4: "4242", ExpMes: 12, ExpAnio: 2027}
	trx, seats, err := coord.Confirm(ctx, "tok-a", key, "ana@example.com", quote.TotalCents, meta)
	require.NoError(t, err)
	assert.Equal(t, model.TxApproved, trx.Estado)
	assert.Equal(t, int64(1000000), trx.AmountCents)
	assert.Regexp(t, `^APP-4242-\d{6}$`, trx.AuthCode)
	assert.Equal(t, []string{"C7", "C8"}, model.SeatCodes(seats))

	// The hold is consumed; the seats stay occupied via the ledger.
	gone, err := coord.GetHold(ctx, "tok-a", key)
	require.NoError(t, err)
	assert.Nil(t, gone)
	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C7", "C8"}, occupied)

	// A later session can never claim the sold seats.
	_, err = coord.Hold(ctx, "tok-c", key, []string{"C7"})
	var unavailable *repository.SeatUnavailableError
	assert.ErrorAs(t, err, &unavailable)

	require.Len(t, pub.events, 1)
	assert.Equal(t, trx.ID, pub.events[0].TransactionID)
	assert.Equal(t, []string{"C7", "C8"}, pub.events[0].Seats)
}

func TestConfirmExpiredHoldRejects(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7"})
	require.NoError(t, err)

	clock.Advance(600 * time.Second)
	trx, _, err := coord.Confirm(ctx, "tok-a", key, "ana@example.com", 500000, model.PaymentMeta{Last4: "4242"})
	require.ErrorIs(t, err, repository.ErrHoldExpired)
	require.NotNil(t, trx)
	assert.Equal(t, model.TxRejected, trx.Estado)

	// The rejection is durable and the ledger untouched.
	stored, err := coord.Transaction(ctx, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxRejected, stored.Estado)
	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestConfirmLedgerConflictRejects(t *testing.T) {
	coord, clock, db := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)

	// A rival reservation lands on C7 behind the hold's back, as a
	// second service instance writing to the same database would.
	_, err = db.ExecContext(ctx,
		`INSERT INTO seat_reservas (movie_id, fecha, hora, sala, seat_code, usuario_email, trx_id, reserved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.MovieID, key.Fecha, key.Hora, key.Sala, "C7", "rival@example.com", 999,
		clock.Now().Format("2006-01-02 15:04:05"))
	require.NoError(t, err)

	trx, _, err := coord.Confirm(ctx, "tok-a", key, "ana@example.com", 1000000, model.PaymentMeta{Last4: "4242"})
	var conflict *repository.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"C7"}, conflict.Seats)
	require.NotNil(t, trx)
	assert.Equal(t, model.TxRejected, trx.Estado)

	// The rejection is durable and nothing of the losing confirm, not
	// even the uncontested C8, reached the ledger.
	stored, err := coord.Transaction(ctx, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxRejected, stored.Estado)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM seat_reservas`).Scan(&count))
	assert.Equal(t, 1, count)
	var email string
	require.NoError(t, db.QueryRow(`SELECT usuario_email FROM seat_reservas WHERE seat_code = 'C7'`).Scan(&email))
	assert.Equal(t, "rival@example.com", email)
}

func TestConfirmUnknownTokenRejects(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	trx, _, err := coord.Confirm(context.Background(), "nope", showtime(), "ana@example.com", 500000, model.PaymentMeta{})
	require.ErrorIs(t, err, repository.ErrHoldExpired)
	assert.Equal(t, model.TxRejected, trx.Estado)
}

func TestExpiredSeatsBecomeHoldableAgain(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)

	// Before expiry the seats are contested; from the expiry instant a
	// new session claims them without waiting for the sweeper.
	_, err = coord.Hold(ctx, "tok-b", key, []string{"C7"})
	require.Error(t, err)

	clock.Advance(600 * time.Second)
	hold, err := coord.Hold(ctx, "tok-b", key, []string{"C7", "C8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C7", "C8"}, model.SeatCodes(hold.Seats))
}

func TestReleaseExpiredSweep(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7", "C8"})
	require.NoError(t, err)

	removed, err := coord.ReleaseExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)

	clock.Advance(600 * time.Second)
	removed, err = coord.ReleaseExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestReleaseFreesSeats(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7"})
	require.NoError(t, err)
	require.NoError(t, coord.Release(ctx, "tok-a", key))
	// Releasing again is a no-op, not an error.
	require.NoError(t, coord.Release(ctx, "tok-a", key))

	_, err = coord.Hold(ctx, "tok-b", key, []string{"C7"})
	assert.NoError(t, err)
}

func TestAvailabilityExcludesOwnToken(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7"})
	require.NoError(t, err)
	_, err = coord.Hold(ctx, "tok-b", key, []string{"D1"})
	require.NoError(t, err)

	mine, err := coord.Availability(ctx, key, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, mine)

	everyone, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C7", "D1"}, everyone)
}

func TestConcurrentHoldsSingleWinner(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	const sessions = 8
	errs := make([]error, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := string(rune('a'+i)) + "-tok"
			_, errs[i] = coord.Hold(ctx, token, key, []string{"E5"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			var unavailable *repository.SeatUnavailableError
			assert.ErrorAs(t, err, &unavailable)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestConcurrentConfirmSingleApproval(t *testing.T) {
	coord, clock, _ := newTestCoordinator(t)
	ctx := context.Background()

	// tok-a holds E5, lets it expire, and tok-b reclaims the seat.
	// Racing both confirms must approve exactly one.
	key := showtime()
	_, err := coord.Hold(ctx, "tok-a", key, []string{"E5"})
	require.NoError(t, err)
	clock.Advance(600 * time.Second)
	_, err = coord.Hold(ctx, "tok-b", key, []string{"E5"})
	require.NoError(t, err)

	// tok-a expired but still tries to pay; tok-b confirms legitimately.
	var wg sync.WaitGroup
	results := make([]error, 2)
	states := make([]*model.Transaction, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		states[0], _, results[0] = coord.Confirm(ctx, "tok-a", key, "a@example.com", 500000, model.PaymentMeta{})
	}()
	go func() {
		defer wg.Done()
		states[1], _, results[1] = coord.Confirm(ctx, "tok-b", key, "b@example.com", 500000, model.PaymentMeta{})
	}()
	wg.Wait()

	require.NoError(t, results[1])
	assert.Equal(t, model.TxApproved, states[1].Estado)
	require.ErrorIs(t, results[0], repository.ErrHoldExpired)
	assert.Equal(t, model.TxRejected, states[0].Estado)

	// Exactly one owner in the ledger.
	occupied, err := coord.Availability(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"E5"}, occupied)
}

func TestTransactionsAudit(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	key := showtime()

	_, err := coord.Hold(ctx, "tok-a", key, []string{"C7"})
	require.NoError(t, err)
	trx, _, err := coord.Confirm(ctx, "tok-a", key, "ana@example.com", 500000, model.PaymentMeta{Last4: "4242"})
	require.NoError(t, err)

	got, err := coord.Transaction(ctx, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxApproved, got.Estado)

	list, err := coord.Transactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, trx.ID, list[0].ID)

	_, err = coord.Transaction(ctx, trx.ID+100)
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)
}
