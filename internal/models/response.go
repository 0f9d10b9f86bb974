package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode labels which composer produced a merged rate.
type Mode string

const (
	ModeGround    Mode = "ground"
	ModeCourier   Mode = "courier"
	ModeAir       Mode = "air"
	ModeSealift   Mode = "sealift"
	ModeInterline Mode = "interline"
)

// RateDetail is a Quote without its carrier identity, nested under a MergedRate.
type RateDetail struct {
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

// Detail strips the carrier identity from q.
func (q Quote) Detail() RateDetail {
	return RateDetail{
		ServiceCode:  q.ServiceCode,
		ServiceName:  q.ServiceName,
		Freight:      q.Freight,
		Surcharge:    q.Surcharge,
		Tax:          q.Tax,
		TaxPercent:   q.TaxPercent,
		Total:        q.Total,
		TransitDays:  q.TransitDays,
		DeliveryDate: q.DeliveryDate,
	}
}

// WaypointRef is the display metadata of a waypoint attached to a merged rate.
type WaypointRef struct {
	Base string `json:"base"`
	City string `json:"city"`
}

// MergedRate is one carrier's main-haul offer, pointing at shared pickup and
// delivery quote lists by index instead of embedding them.
type MergedRate struct {
	CarrierID      int          `json:"carrier_id"`
	CarrierName    string       `json:"carrier_name"`
	Mode           Mode         `json:"mode"`
	PickupIndex    *int         `json:"pickup_index,omitempty"`
	DeliveryIndex  *int         `json:"delivery_index,omitempty"`
	MidOrigin      *WaypointRef `json:"mid_origin,omitempty"`
	MidDestination *WaypointRef `json:"mid_destination,omitempty"`
	Middle         []RateDetail `json:"middle"`
}

// CarrierService is a distinct (carrier_id, service_code) pair. It
// serializes as a two element JSON array.
type CarrierService struct {
	CarrierID   int
	ServiceCode string
}

func (c CarrierService) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.CarrierID, c.ServiceCode})
}

func (c *CarrierService) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("carrier service: want [carrier_id, service_code], got %s", data)
	}
	if err := json.Unmarshal(pair[0], &c.CarrierID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.ServiceCode)
}

// AggregatedResponse is the merged result of every rating mode.
type AggregatedResponse struct {
	Rates         []MergedRate     `json:"rates"`
	PickupRates   [][]Quote        `json:"pickup_rates"`
	DeliveryRates [][]Quote        `json:"delivery_rates"`
	Carriers      []CarrierService `json:"carriers"`
}

// TierPick is a selected middle quote tagged with its parent carrier. A nil
// *TierPick serializes as {}.
type TierPick struct {
	CarrierID int `json:"carrier_id"`
	RateDetail
}

// TierResponse is the economy/standard/express reduction.
type TierResponse struct {
	Economy  *TierPick `json:"economy"`
	Standard *TierPick `json:"standard"`
	Express  *TierPick `json:"express"`
}

func (t TierResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	for name, pick := range map[string]*TierPick{
		"economy":  t.Economy,
		"standard": t.Standard,
		"express":  t.Express,
	} {
		if pick == nil {
			out[name] = struct{}{}
			continue
		}
		out[name] = pick
	}
	return json.Marshal(out)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
