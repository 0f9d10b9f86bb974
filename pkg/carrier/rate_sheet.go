package carrier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"freight-rating/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Querier is the part of pgxpool.Pool the rate-sheet provider uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SheetLane is one row of a carrier's published LTL rate sheet.
type SheetLane struct {
	CarrierID     int
	CarrierName   string
	ServiceCode   string
	ServiceName   string
	MinimumCharge decimal.Decimal
	PerKG         decimal.Decimal
	FuelPercent   decimal.Decimal
	TaxPercent    decimal.Decimal
	TransitDays   int
}

// RateSheetProvider rates RATE_SHEET carriers from the rate_sheet_lanes table.
type RateSheetProvider struct {
	db  Querier
	loc *time.Location
}

func NewRateSheetProvider(db Querier, loc *time.Location) *RateSheetProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &RateSheetProvider{db: db, loc: loc}
}

func (p *RateSheetProvider) Name() string {
	return "rate-sheet"
}

// Rate returns one quote per sheet lane matching the leg's province pair.
func (p *RateSheetProvider) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	req := leg.Request
	if len(req.CarrierIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT l.carrier_id, l.carrier_name, l.service_code, l.service_name,
               l.minimum_charge::text, l.per_kg::text, l.fuel_percent::text,
               COALESCE(t.percent, 0)::text, l.transit_days
        FROM rate_sheet_lanes l
        LEFT JOIN province_taxes t ON t.province = l.destination_province
        WHERE l.carrier_id = ANY($1)
          AND l.origin_province = $2
          AND l.destination_province = $3
        ORDER BY l.carrier_id, l.service_code`
	rows, err := p.db.Query(ctx, query, req.CarrierIDs,
		strings.ToUpper(req.Origin.Province), strings.ToUpper(req.Destination.Province))
	if err != nil {
		return nil, fmt.Errorf("rate sheet: %w: %v", models.ErrRateUnavailable, err)
	}
	defer rows.Close()

	pickup := req.PickupDay(p.loc)
	weight := decimal.NewFromFloat(req.TotalWeightKG())
	var quotes []models.Quote
	for rows.Next() {
		var lane SheetLane
		var minimum, perKG, fuel, tax string
		if err := rows.Scan(&lane.CarrierID, &lane.CarrierName, &lane.ServiceCode, &lane.ServiceName,
			&minimum, &perKG, &fuel, &tax, &lane.TransitDays); err != nil {
			return nil, fmt.Errorf("rate sheet scan: %w", err)
		}
		if err := parseDecimals(
			[]string{minimum, perKG, fuel, tax},
			[]*decimal.Decimal{&lane.MinimumCharge, &lane.PerKG, &lane.FuelPercent, &lane.TaxPercent},
		); err != nil {
			return nil, &models.ProviderConfigError{Provider: p.Name(), Reason: err.Error()}
		}
		quotes = append(quotes, PriceLane(lane, weight, pickup))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rate sheet: %w: %v", models.ErrRateUnavailable, err)
	}
	return quotes, nil
}

func parseDecimals(raw []string, dst []*decimal.Decimal) error {
	for i, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("bad rate sheet value %q: %w", v, err)
		}
		*dst[i] = d
	}
	return nil
}

// PriceLane applies a sheet lane to a shipment weight:
// freight = max(minimum, per_kg * weight), fuel surcharge on freight, tax on both.
func PriceLane(lane SheetLane, weightKG decimal.Decimal, pickup time.Time) models.Quote {
	freight := decimal.Max(lane.MinimumCharge, lane.PerKG.Mul(weightKG)).Round(2)
	surcharge := freight.Mul(lane.FuelPercent).Div(hundred).Round(2)
	tax := freight.Add(surcharge).Mul(lane.TaxPercent).Div(hundred).Round(2)

	q := models.Quote{
		CarrierID:   lane.CarrierID,
		CarrierName: lane.CarrierName,
		ServiceCode: lane.ServiceCode,
		ServiceName: lane.ServiceName,
		Freight:     freight.InexactFloat64(),
		Surcharge:   surcharge.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		TaxPercent:  lane.TaxPercent.InexactFloat64(),
		Total:       freight.Add(surcharge).Add(tax).InexactFloat64(),
		TransitDays: models.UnknownTransitDays,
	}
	if lane.TransitDays > 0 {
		q.TransitDays = lane.TransitDays
		q.DeliveryDate = pickup.AddDate(0, 0, lane.TransitDays)
	}
	return q
}

var hundred = decimal.NewFromInt(100)
