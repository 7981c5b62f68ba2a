package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownCombo is returned when a quote references a combo id that
// is not in the catalog.
var ErrUnknownCombo = errors.New("unknown combo")

// Quote is a server-computed order total in the currency's minor unit.
// Rounding to cents happens half-up and independently at each summation
// stage (entradas subtotal, combos subtotal, grand total), so the
// subtotals always reconcile with the rows they were derived from.
type Quote struct {
	EntradasCents int64 `json:"entradas_cents"`
	CombosCents   int64 `json:"combos_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Pricer computes quotes from the configured per-seat ticket price and
// a combo catalog.
type Pricer struct {
	ticket  decimal.Decimal
	catalog *Catalog
}

// NewPricer parses the configured ticket price and binds it to a
// catalog.  An unparseable or negative price is a configuration defect
// and should be treated as fatal by the caller.
func NewPricer(ticketPrice string, catalog *Catalog) (*Pricer, error) {
	ticket, err := decimal.NewFromString(ticketPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket price %q: %w", ticketPrice, err)
	}
	if ticket.IsNegative() {
		return nil, fmt.Errorf("invalid ticket price %q: negative", ticketPrice)
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Pricer{ticket: ticket, catalog: catalog}, nil
}

// Quote computes the total for seatCount tickets plus the selected
// combos.  Deterministic: identical inputs always produce identical
// cents.  Duplicate combo ids are counted once per occurrence.
func (p *Pricer) Quote(seatCount int, comboIDs []int) (Quote, error) {
	if seatCount <= 0 {
		return Quote{}, fmt.Errorf("seat count must be positive, got %d", seatCount)
	}
	entradas := p.ticket.Mul(decimal.NewFromInt(int64(seatCount))).Round(2)

	combos := decimal.Zero
	for _, id := range comboIDs {
		combo, ok := p.catalog.Get(id)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %d", ErrUnknownCombo, id)
		}
		combos = combos.Add(combo.Precio)
	}
	combos = combos.Round(2)

	total := entradas.Add(combos).Round(2)

	return Quote{
		EntradasCents: cents(entradas),
		CombosCents:   cents(combos),
		TotalCents:    cents(total),
	}, nil
}

// cents converts an amount already rounded to two decimals into an
// integer count of the minor unit.
func cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
