package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cinealfa/boleteria/internal/booking"
	"github.com/cinealfa/boleteria/internal/model"
	"github.com/cinealfa/boleteria/internal/pricing"
	"github.com/cinealfa/boleteria/internal/repository"
	"github.com/cinealfa/boleteria/internal/seatmap"
)

// PaymentHandler exposes the checkout flow over HTTP: quoting, holding
// seats, confirming payment and the audit reads.  Card validation, QR,
// PDF and email all live outside this service; by the time a confirm
// arrives the payment result and its metadata are plain values.
type PaymentHandler struct {
	Coordinator *booking.Coordinator
}

// NewPaymentHandler constructs a PaymentHandler.  The coordinator must
// be non-nil.
func NewPaymentHandler(coord *booking.Coordinator) *PaymentHandler {
	if coord == nil {
		panic("nil coordinator passed to NewPaymentHandler")
	}
	return &PaymentHandler{Coordinator: coord}
}

type showtimeRequest struct {
	MovieID string `json:"movie_id" query:"movie_id"`
	Fecha   string `json:"fecha" query:"fecha"`
	Hora    string `json:"hora" query:"hora"`
	Sala    string `json:"sala" query:"sala"`
}

func (r showtimeRequest) key() model.ShowtimeKey {
	return model.ShowtimeKey{MovieID: r.MovieID, Fecha: r.Fecha, Hora: r.Hora, Sala: r.Sala}
}

// Quote handles POST /v1/quote.  The total is always computed server
// side from the configured prices; any amount the client may have
// rendered is ignored.
func (h *PaymentHandler) Quote(c echo.Context) error {
	var body struct {
		SeatCount int   `json:"seat_count"`
		ComboIDs  []int `json:"combo_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	quote, err := h.Coordinator.Quote(body.SeatCount, body.ComboIDs)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownCombo) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown combo"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, quote)
}

// Availability handles GET /v1/showtimes/seats.  It returns the room
// layout and the occupied seat codes for the showtime so the seat map
// can be rendered.  A session may pass its own token to see its held
// seats as selectable.
func (h *PaymentHandler) Availability(c echo.Context) error {
	var req showtimeRequest
	if err := c.Bind(&req); err != nil || req.key().IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id, fecha, hora and sala are required"})
	}
	occupied, err := h.Coordinator.Availability(c.Request().Context(), req.key(), c.QueryParam("token"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	layout := h.Coordinator.Layout()
	return c.JSON(http.StatusOK, echo.Map{
		"rows":          layout.Rows,
		"cols":          layout.Cols,
		"max_per_order": layout.MaxPerOrder,
		"occupied":      occupied,
	})
}

// Hold handles POST /v1/showtimes/hold.  It places (or replaces) the
// session's temporary claim on the requested seats.  When the client
// supplies no token a fresh one is generated and returned; the client
// must present the same token on confirm.  Responds 409 with the list
// of contested seats when any seat is already taken.
func (h *PaymentHandler) Hold(c echo.Context) error {
	var body struct {
		showtimeRequest
		Token string   `json:"token"`
		Seats []string `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.key().IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id, fecha, hora and sala are required"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	token := body.Token
	if token == "" {
		token = uuid.NewString()
	}

	hold, err := h.Coordinator.Hold(c.Request().Context(), token, body.key(), body.Seats)
	if err != nil {
		var unavailable *repository.SeatUnavailableError
		if errors.As(err, &unavailable) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":       "some seats are unavailable",
				"unavailable": unavailable.Seats,
			})
		}
		var unknown *seatmap.UnknownSeatError
		if errors.As(err, &unknown) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": unknown.Error()})
		}
		var tooMany *booking.TooManySeatsError
		if errors.As(err, &tooMany) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": tooMany.Error()})
		}
		if errors.Is(err, booking.ErrNoSeats) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seats provided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to place hold"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      hold.Token,
		"seats":      model.SeatCodes(hold.Seats),
		"expires_at": hold.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ReleaseHold handles DELETE /v1/showtimes/hold.  Releasing an absent
// or already-expired hold is not an error.
func (h *PaymentHandler) ReleaseHold(c echo.Context) error {
	var body struct {
		showtimeRequest
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil || body.Token == "" || body.key().IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and showtime are required"})
	}
	if err := h.Coordinator.Release(c.Request().Context(), body.Token, body.key()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release hold"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}

// Confirm handles POST /v1/payments/confirm.  It recomputes the total
// from the live hold and the selected combos, records the payment
// attempt, and converts the hold into permanent reservations.  A lost
// race or an expired hold responds 409 with the transaction left
// RECHAZADA; the caller shows "seats no longer available, reselect".
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var body struct {
		showtimeRequest
		Token        string            `json:"token"`
		UsuarioEmail string            `json:"usuario_email"`
		ComboIDs     []int             `json:"combo_ids"`
		Payment      model.PaymentMeta `json:"payment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Token == "" || body.key().IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and showtime are required"})
	}
	if body.UsuarioEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "usuario_email is required"})
	}
	ctx := c.Request().Context()

	// Quote from the hold actually on file, never from client numbers.
	hold, err := h.Coordinator.GetHold(ctx, body.Token, body.key())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load hold"})
	}
	if hold == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired, please reselect seats"})
	}
	quote, err := h.Coordinator.Quote(len(hold.Seats), body.ComboIDs)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownCombo) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown combo"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	trx, seats, err := h.Coordinator.Confirm(ctx, body.Token, body.key(), body.UsuarioEmail, quote.TotalCents, body.Payment)
	if err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":          "seats no longer available, please reselect",
				"conflicts":      conflict.Seats,
				"transaction_id": trx.ID,
				"estado":         trx.Estado,
			})
		}
		if errors.Is(err, repository.ErrHoldExpired) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":          "hold expired, please reselect seats",
				"transaction_id": trx.ID,
				"estado":         trx.Estado,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment confirmation failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction_id": trx.ID,
		"estado":         trx.Estado,
		"auth_code":      trx.AuthCode,
		"amount_cents":   trx.AmountCents,
		"seats":          model.SeatCodes(seats),
	})
}

// GetTransaction handles GET /v1/transactions/:id for audit reads.
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	trx, err := h.Coordinator.Transaction(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transaction"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": trx})
}

// ListTransactions handles GET /v1/transactions, newest first.
func (h *PaymentHandler) ListTransactions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	items, err := h.Coordinator.Transactions(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transactions"})
	}
	if items == nil {
		items = []model.Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
