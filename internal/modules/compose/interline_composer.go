package compose

import (
	"context"
	"fmt"
	"log/slog"

	"freight-rating/internal/models"

	"github.com/shopspring/decimal"
)

// ComposeInterline joins two ground carriers at a cross-dock midpoint: the
// cheapest first-mile quote into the midpoint and the cheapest last-mile
// quote out of it.
func (c *Composer) ComposeInterline(ctx context.Context, req models.ShipmentRequest) ([]models.InterlineItinerary, error) {
	catalog := c.dispatcher.Catalog()
	ids := catalog.Filter(req.CarrierIDs, func(carrier models.Carrier) bool {
		return carrier.Mode == models.ModeGround && !carrier.NoInterline
	})
	if len(ids) == 0 {
		return nil, fmt.Errorf("interline: %w", models.ErrNoCarriers)
	}

	mids, err := c.resolver.Midpoint(ctx, req.Origin, req.Destination)
	if err != nil {
		slog.WarnContext(ctx, "cross-dock lookup failed", "request_id", req.RequestID, "error", err)
		return nil, fmt.Errorf("interline: %w", models.ErrNoMidpoint)
	}
	if len(mids) == 0 {
		return nil, fmt.Errorf("interline: %w", models.ErrNoMidpoint)
	}
	mid := mids[0]
	fallback := models.PlaceholderQuote(ids[0], catalog.Name(ids[0]))

	first := newLeg(models.LegPickup, req.WithDestination(mid.AsAddress()).WithCarriers(ids...))
	last := newLeg(models.LegDelivery, req.WithOrigin(mid.AsAddress()).WithCarriers(ids...))
	results := c.dispatcher.DispatchAll(ctx, []models.LegRequest{first, last})
	if len(results[0]) == 0 && len(results[1]) == 0 {
		return nil, fmt.Errorf("interline: %w", models.ErrNoRatesRetrieved)
	}

	firstQuote, ok := cheapest(results[0])
	if !ok {
		firstQuote = fallback
	} else {
		firstQuote = applyCrossDockFee(firstQuote, c.crossDockFee)
	}
	lastQuote, ok := cheapest(results[1])
	if !ok {
		lastQuote = fallback
	}

	return []models.InterlineItinerary{{First: firstQuote, Midpoint: mid, Last: lastQuote}}, nil
}

// cheapest picks the lowest total; ties keep the earliest quote.
func cheapest(quotes []models.Quote) (models.Quote, bool) {
	if len(quotes) == 0 {
		return models.Quote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Total < best.Total {
			best = q
		}
	}
	return best, true
}

// applyCrossDockFee adds fee to the surcharge and recomputes tax and total.
func applyCrossDockFee(q models.Quote, fee float64) models.Quote {
	freight := decimal.NewFromFloat(q.Freight)
	surcharge := decimal.NewFromFloat(q.Surcharge).Add(decimal.NewFromFloat(fee))
	taxRate := decimal.NewFromFloat(q.TaxPercent).Div(decimal.NewFromInt(100))
	tax := freight.Add(surcharge).Mul(taxRate).Round(2)

	q.Surcharge = surcharge.Round(2).InexactFloat64()
	q.Tax = tax.InexactFloat64()
	q.Total = freight.Add(surcharge).Add(tax).Round(2).InexactFloat64()
	return q
}
