package models

import "time"

// UnknownTransitDays marks a quote whose transit time the carrier did not report.
const UnknownTransitDays = -1

// PlaceholderServiceCode identifies the zero-cost "quote pending" quote that
// stands in for a ground leg no provider could price.
const PlaceholderServiceCode = "BBE"

// Quote is one priced service returned by a carrier adapter.
// A zero DeliveryDate means the delivery date is unknown.
type Quote struct {
	CarrierID    int       `json:"carrier_id"`
	CarrierName  string    `json:"carrier_name"`
	ServiceCode  string    `json:"service_code"`
	ServiceName  string    `json:"service_name"`
	Freight      float64   `json:"freight"`
	Surcharge    float64   `json:"surcharge"`
	Tax          float64   `json:"tax"`
	TaxPercent   float64   `json:"tax_percent"`
	Total        float64   `json:"total"`
	TransitDays  int       `json:"transit_days"`
	DeliveryDate time.Time `json:"delivery_date"`
}

// IsPlaceholder reports whether q is a "quote pending" stand-in.
func (q Quote) IsPlaceholder() bool {
	return q.ServiceCode == PlaceholderServiceCode
}

// HasKnownTransit reports whether q carries a usable, non-zero transit time.
func (q Quote) HasKnownTransit() bool {
	return q.TransitDays > 0
}

// PlaceholderQuote builds the "quote pending" stand-in for a carrier.
func PlaceholderQuote(carrierID int, carrierName string) Quote {
	return Quote{
		CarrierID:   carrierID,
		CarrierName: carrierName,
		ServiceCode: PlaceholderServiceCode,
		ServiceName: "Quote Pending",
		TransitDays: UnknownTransitDays,
	}
}

// Waypoint is an airbase, seaport or cross-dock point. Base is its identity.
type Waypoint struct {
	Base       string `json:"base" mapstructure:"base"`
	Address    string `json:"address" mapstructure:"address"`
	City       string `json:"city" mapstructure:"city"`
	Province   string `json:"province" mapstructure:"province"`
	Country    string `json:"country" mapstructure:"country"`
	PostalCode string `json:"postal_code" mapstructure:"postal_code"`
}

// AsAddress converts the waypoint into a leg endpoint.
func (w Waypoint) AsAddress() Address {
	return Address{
		Address:    w.Address,
		City:       w.City,
		Province:   w.Province,
		Country:    w.Country,
		PostalCode: w.PostalCode,
	}
}

// WaypointCandidates are the hubs a carrier can use near each end of a lane,
// each side ordered nearest first.
type WaypointCandidates struct {
	Origin      []Waypoint
	Destination []Waypoint
}

// Empty reports whether either side has no candidate.
func (c WaypointCandidates) Empty() bool {
	return len(c.Origin) == 0 || len(c.Destination) == 0
}

// PortSailings groups the sailings that leave from one port.
type PortSailings struct {
	Port     Waypoint
	Sailings []string
}

// Itinerary is a full path from shipment origin to destination. Pickup and
// Delivery are nil when the main leg covers that end itself.
type Itinerary struct {
	Pickup         []Quote
	Main           []Quote
	Delivery       []Quote
	MidOrigin      *Waypoint
	MidDestination *Waypoint
}

// InterlineItinerary pairs the cheapest first-mile and last-mile quotes
// meeting at a cross-dock midpoint.
type InterlineItinerary struct {
	First    Quote
	Midpoint Waypoint
	Last     Quote
}
