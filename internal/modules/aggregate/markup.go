package aggregate

import (
	"strings"

	"freight-rating/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarkupPolicyProvider returns the price multiplier for one carrier on one lane.
type MarkupPolicyProvider interface {
	Multiplier(accountID string, carrierID int, originCity, destinationCity string) decimal.Decimal
}

// LaneRule pins an account to its default percentage, without the carrier
// override, on one carrier's city-to-city lane.
type LaneRule struct {
	AccountID       string `json:"account_id"`
	CarrierID       int    `json:"carrier_id"`
	OriginCity      string `json:"origin_city"`
	DestinationCity string `json:"destination_city"`
}

func (r LaneRule) matches(accountID string, carrierID int, originCity, destinationCity string) bool {
	return r.AccountID == accountID &&
		r.CarrierID == carrierID &&
		strings.EqualFold(strings.TrimSpace(r.OriginCity), strings.TrimSpace(originCity)) &&
		strings.EqualFold(strings.TrimSpace(r.DestinationCity), strings.TrimSpace(destinationCity))
}

// MarkupPolicy is one account's markup configuration. The zero value marks
// nothing up.
type MarkupPolicy struct {
	AccountID      string
	DefaultPercent decimal.Decimal
	CarrierPercent map[int]decimal.Decimal
	LaneRules      []LaneRule
}

// Multiplier returns 1 + (default + carrier override) / 100. A matching lane
// rule is checked first and drops the carrier override.
func (p *MarkupPolicy) Multiplier(accountID string, carrierID int, originCity, destinationCity string) decimal.Decimal {
	if p == nil {
		return decimal.NewFromInt(1)
	}
	for _, rule := range p.LaneRules {
		if rule.matches(accountID, carrierID, originCity, destinationCity) {
			return decimal.NewFromInt(1).Add(p.DefaultPercent.Div(hundred))
		}
	}
	percent := p.DefaultPercent
	if override, ok := p.CarrierPercent[carrierID]; ok {
		percent = percent.Add(override)
	}
	return decimal.NewFromInt(1).Add(percent.Div(hundred))
}

// applyMarkup scales the four money fields of q independently, each rounded
// to cents.
func applyMarkup(q models.Quote, m decimal.Decimal) models.Quote {
	q.Freight = scale(q.Freight, m)
	q.Surcharge = scale(q.Surcharge, m)
	q.Tax = scale(q.Tax, m)
	q.Total = scale(q.Total, m)
	return q
}

func scale(v float64, m decimal.Decimal) float64 {
	return decimal.NewFromFloat(v).Mul(m).Round(2).InexactFloat64()
}
