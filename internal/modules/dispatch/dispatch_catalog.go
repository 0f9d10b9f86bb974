package dispatch

import (
	"log/slog"
	"sort"

	"freight-rating/internal/models"
)

// Catalog is the read-only carrier reference data: which family and mode each
// carrier ID belongs to. It is built once at startup and shared by every request.
type Catalog struct {
	carriers map[int]models.Carrier
}

// NewCatalog indexes carriers by ID. Named carriers without an explicit
// family suffix get their own CARRIER:<id> family.
func NewCatalog(carriers []models.Carrier) *Catalog {
	c := &Catalog{carriers: make(map[int]models.Carrier, len(carriers))}
	for _, carrier := range carriers {
		if carrier.Family == "CARRIER" {
			carrier.Family = models.NamedFamily(carrier.ID)
		}
		c.carriers[carrier.ID] = carrier
	}
	return c
}

// Carrier looks up one catalog entry.
func (c *Catalog) Carrier(id int) (models.Carrier, bool) {
	carrier, ok := c.carriers[id]
	return carrier, ok
}

// Name returns the carrier's display name, or "" for unknown IDs.
func (c *Catalog) Name(id int) string {
	return c.carriers[id].Name
}

// Partition splits ids into disjoint per-family sublists, keeping request
// order inside each sublist. IDs that match no family are dropped.
func (c *Catalog) Partition(ids []int) map[models.CarrierFamily][]int {
	out := make(map[models.CarrierFamily][]int)
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		carrier, ok := c.carriers[id]
		if !ok {
			slog.Debug("carrier id matches no family, dropped", "carrier_id", id)
			continue
		}
		out[carrier.Family] = append(out[carrier.Family], id)
	}
	return out
}

// Filter keeps the IDs whose catalog entry satisfies keep. Unknown IDs are dropped.
func (c *Catalog) Filter(ids []int, keep func(models.Carrier) bool) []int {
	var out []int
	for _, id := range ids {
		carrier, ok := c.carriers[id]
		if ok && keep(carrier) {
			out = append(out, id)
		}
	}
	return out
}

// LegCarriers returns every rate-sheet carrier, ordered by ID. These price
// the pickup and delivery ground legs around a waypoint.
func (c *Catalog) LegCarriers() []int {
	var ids []int
	for id, carrier := range c.carriers {
		if carrier.Family == models.FamilyRateSheet {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// IsMode returns a Filter predicate matching one or more modes.
func IsMode(modes ...models.Mode) func(models.Carrier) bool {
	return func(c models.Carrier) bool {
		for _, m := range modes {
			if c.Mode == m {
				return true
			}
		}
		return false
	}
}
