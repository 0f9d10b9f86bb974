package models

import (
	"strings"
	"time"
)

// Address is a shipment endpoint. Waypoints reuse the same shape.
type Address struct {
	Address       string `json:"address"`
	City          string `json:"city" validate:"required"`
	Province      string `json:"province" validate:"required"`
	Country       string `json:"country" validate:"required,len=2"`
	PostalCode    string `json:"postal_code"`
	IsResidential bool   `json:"is_residential,omitempty"`
}

// NormalizedPostalCode strips whitespace and upper-cases the postal code so
// that prefix tables can match "x0a 1h0" and "X0A1H0" alike.
func (a Address) NormalizedPostalCode() string {
	return strings.ToUpper(strings.ReplaceAll(a.PostalCode, " ", ""))
}

// Package is one handling unit. When Imperial is set the dimensions are in
// inches and the weight in pounds.
type Package struct {
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Length      float64 `json:"length" validate:"gt=0"`
	Width       float64 `json:"width" validate:"gt=0"`
	Height      float64 `json:"height" validate:"gt=0"`
	Weight      float64 `json:"weight" validate:"gt=0"`
	Imperial    bool    `json:"imperial,omitempty"`
	Description string  `json:"description,omitempty"`
}

const (
	cmPerInch = 2.54
	kgPerLb   = 0.45359237
)

// Metric returns the package expressed in centimetres and kilograms.
func (p Package) Metric() Package {
	if !p.Imperial {
		return p
	}
	m := p
	m.Length = p.Length * cmPerInch
	m.Width = p.Width * cmPerInch
	m.Height = p.Height * cmPerInch
	m.Weight = p.Weight * kgPerLb
	m.Imperial = false
	return m
}

// ShipmentRequest is the normalized rating input. Composers never mutate it;
// the With* builders hand back independent copies for each leg.
type ShipmentRequest struct {
	RequestID        string    `json:"request_id,omitempty"`
	AccountID        string    `json:"account_id" validate:"required"`
	Currency         string    `json:"currency" validate:"omitempty,len=3"`
	Origin           Address   `json:"origin"`
	Destination      Address   `json:"destination"`
	Packages         []Package `json:"packages" validate:"required,min=1,dive"`
	CarrierIDs       []int     `json:"carrier_id" validate:"required,min=1"`
	IsDangerousGoods bool      `json:"is_dangerous_goods"`
	IsPacking        bool      `json:"is_packing"`
	PickupDate       string    `json:"pickup_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Sailings         []string  `json:"sailings,omitempty"`
}

// Clone returns a deep copy.
func (r ShipmentRequest) Clone() ShipmentRequest {
	c := r
	c.Packages = append([]Package(nil), r.Packages...)
	c.CarrierIDs = append([]int(nil), r.CarrierIDs...)
	c.Sailings = append([]string(nil), r.Sailings...)
	return c
}

func (r ShipmentRequest) WithOrigin(a Address) ShipmentRequest {
	c := r.Clone()
	c.Origin = a
	return c
}

func (r ShipmentRequest) WithDestination(a Address) ShipmentRequest {
	c := r.Clone()
	c.Destination = a
	return c
}

func (r ShipmentRequest) WithCarriers(ids ...int) ShipmentRequest {
	c := r.Clone()
	c.CarrierIDs = append([]int(nil), ids...)
	return c
}

func (r ShipmentRequest) WithSailings(sailings ...string) ShipmentRequest {
	c := r.Clone()
	c.Sailings = append([]string(nil), sailings...)
	return c
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// PickupDay parses PickupDate in loc, falling back to today when it is unset
// or malformed.
func (r ShipmentRequest) PickupDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if r.PickupDate != "" {
		if d, err := time.ParseInLocation(DateLayout, r.PickupDate, loc); err == nil {
			return d
		}
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

// TotalWeightKG sums quantity * weight across all packages in kilograms.
func (r ShipmentRequest) TotalWeightKG() float64 {
	var total float64
	for _, p := range r.Packages {
		m := p.Metric()
		total += float64(m.Quantity) * m.Weight
	}
	return total
}

// LegRole tags which part of an itinerary a leg request prices.
type LegRole string

const (
	LegPickup   LegRole = "PICKUP"
	LegMain     LegRole = "MAIN"
	LegDelivery LegRole = "DELIVERY"
	LegDirect   LegRole = "DIRECT"
)

// LegRequest is a ShipmentRequest narrowed to one leg of an itinerary.
type LegRequest struct {
	ID      string          `json:"id"`
	Role    LegRole         `json:"role"`
	Request ShipmentRequest `json:"request"`
}
