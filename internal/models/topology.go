package models

// TopologyPolicy selects how many hub pairs the air composer tries for a carrier.
type TopologyPolicy string

const (
	// PolicyNearest pairs the nearest origin hub with the nearest destination hub.
	PolicyNearest TopologyPolicy = "nearest"
	// PolicyAlternateHubs enumerates every hub pair the region table allows.
	PolicyAlternateHubs TopologyPolicy = "alternate_hubs"
)

// TopologyRegion restricts addresses whose postal code starts with one of
// PostalPrefixes to the listed hub base codes.
type TopologyRegion struct {
	Name           string   `mapstructure:"name"`
	PostalPrefixes []string `mapstructure:"postal_prefixes"`
	Hubs           []string `mapstructure:"hubs"`
}

// TopologyTable is the hub-selection table one air carrier declares.
type TopologyTable struct {
	CarrierID int              `mapstructure:"carrier_id"`
	Policy    TopologyPolicy   `mapstructure:"policy"`
	Regions   []TopologyRegion `mapstructure:"regions"`
}

// PackingStation is where a sealift carrier receives freight that needs packing.
type PackingStation struct {
	CarrierID int      `mapstructure:"carrier_id"`
	Station   Waypoint `mapstructure:"station"`
}
