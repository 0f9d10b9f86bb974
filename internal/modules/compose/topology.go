package compose

import (
	"strings"

	"freight-rating/internal/models"
)

// HubPair is one (origin hub, destination hub) combination an air carrier can fly.
type HubPair struct {
	Origin      models.Waypoint
	Destination models.Waypoint
}

// Topology holds the per-carrier hub-selection tables.
type Topology struct {
	tables map[int]models.TopologyTable
}

func NewTopology(tables []models.TopologyTable) *Topology {
	t := &Topology{tables: make(map[int]models.TopologyTable, len(tables))}
	for _, table := range tables {
		t.tables[table.CarrierID] = table
	}
	return t
}

// Pairs decides which hub pairs to try for carrierID. Carriers without an
// alternate-hub table get the nearest hub at each end; carriers with one get
// every origin/destination combination their region table allows.
func (t *Topology) Pairs(carrierID int, origin, destination models.Address, cands models.WaypointCandidates) []HubPair {
	if cands.Empty() {
		return nil
	}
	table, ok := t.tables[carrierID]
	if !ok || table.Policy != models.PolicyAlternateHubs {
		o, d := cands.Origin[0], cands.Destination[0]
		if o.Base == d.Base {
			return nil
		}
		return []HubPair{{Origin: o, Destination: d}}
	}

	origins := allowed(table, origin, cands.Origin)
	destinations := allowed(table, destination, cands.Destination)
	var pairs []HubPair
	for _, o := range origins {
		for _, d := range destinations {
			if o.Base == d.Base {
				continue
			}
			pairs = append(pairs, HubPair{Origin: o, Destination: d})
		}
	}
	return pairs
}

// allowed filters candidates down to the hubs of the first region whose
// postal prefixes match addr. An address in no region may use any candidate.
func allowed(table models.TopologyTable, addr models.Address, candidates []models.Waypoint) []models.Waypoint {
	region, ok := regionFor(table, addr)
	if !ok {
		return candidates
	}
	hubs := make(map[string]bool, len(region.Hubs))
	for _, h := range region.Hubs {
		hubs[strings.ToUpper(h)] = true
	}
	var out []models.Waypoint
	for _, w := range candidates {
		if hubs[strings.ToUpper(w.Base)] {
			out = append(out, w)
		}
	}
	return out
}

func regionFor(table models.TopologyTable, addr models.Address) (models.TopologyRegion, bool) {
	postal := addr.NormalizedPostalCode()
	if postal == "" {
		return models.TopologyRegion{}, false
	}
	for _, region := range table.Regions {
		for _, prefix := range region.PostalPrefixes {
			p := strings.ToUpper(strings.ReplaceAll(prefix, " ", ""))
			if p != "" && strings.HasPrefix(postal, p) {
				return region, true
			}
		}
	}
	return models.TopologyRegion{}, false
}
