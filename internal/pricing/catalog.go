// Package pricing computes server-side order totals.  Amounts are never
// trusted from client input: the quote is a pure function of the seat
// count, the combo selection and the configured prices.
package pricing

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Combo is one item of the snack catalog.
type Combo struct {
	ID          int             `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
}

// Catalog is the set of purchasable combos, indexed by id.
type Catalog struct {
	byID    map[int]Combo
	ordered []Combo
}

// comboYAML is the on-disk shape of a catalog entry.  Precio is kept a
// string so the decimal value parses exactly.
type comboYAML struct {
	ID          int    `yaml:"id"`
	Nombre      string `yaml:"nombre"`
	Descripcion string `yaml:"descripcion"`
	Precio      string `yaml:"precio"`
}

// DefaultCatalog returns the seed catalog used when no COMBOS_FILE is
// configured.
func DefaultCatalog() *Catalog {
	cat, err := newCatalog([]comboYAML{
		{ID: 1, Nombre: "Combo 1", Descripcion: "Popcorn + Bebida", Precio: "1500"},
		{ID: 2, Nombre: "Combo 2", Descripcion: "2x Popcorn + 2x Bebida", Precio: "2500"},
		{ID: 3, Nombre: "Combo 3", Descripcion: "Popcorn + Nachos + Bebida", Precio: "2000"},
	})
	if err != nil {
		panic(err) // seed catalog is compiled in; failing to parse it is a programming error
	}
	return cat
}

// LoadCatalog reads a combo catalog from a YAML file.  The file must
// contain a top-level "combos" list with id/nombre/descripcion/precio
// entries.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc struct {
		Combos []comboYAML `yaml:"combos"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Combos) == 0 {
		return nil, fmt.Errorf("catalog %s defines no combos", path)
	}
	return newCatalog(doc.Combos)
}

func newCatalog(entries []comboYAML) (*Catalog, error) {
	cat := &Catalog{byID: make(map[int]Combo, len(entries))}
	for _, e := range entries {
		if e.ID <= 0 {
			return nil, fmt.Errorf("combo %q has invalid id %d", e.Nombre, e.ID)
		}
		if _, dup := cat.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate combo id %d", e.ID)
		}
		precio, err := decimal.NewFromString(e.Precio)
		if err != nil || precio.IsNegative() {
			return nil, fmt.Errorf("combo %d has invalid price %q", e.ID, e.Precio)
		}
		c := Combo{ID: e.ID, Nombre: e.Nombre, Descripcion: e.Descripcion, Precio: precio}
		cat.byID[c.ID] = c
		cat.ordered = append(cat.ordered, c)
	}
	return cat, nil
}

// Get returns the combo with the given id.
func (c *Catalog) Get(id int) (Combo, bool) {
	combo, ok := c.byID[id]
	return combo, ok
}

// List returns all combos in catalog order.
func (c *Catalog) List() []Combo {
	out := make([]Combo, len(c.ordered))
	copy(out, c.ordered)
	return out
}
