package compose

import (
	"context"
	"fmt"
	"log/slog"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/dispatch"
)

// airPlan is one itinerary before dispatch: three legs around a hub pair.
type airPlan struct {
	pair     HubPair
	pickup   models.LegRequest
	main     models.LegRequest
	delivery models.LegRequest
}

// ComposeAir builds pickup, main-haul and delivery legs for every air carrier
// and hub pair, dispatches all of them at once and keeps the itineraries whose
// main leg was priced.
func (c *Composer) ComposeAir(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error) {
	catalog := c.dispatcher.Catalog()
	airIDs := catalog.Filter(req.CarrierIDs, dispatch.IsMode(models.ModeAir))
	if len(airIDs) == 0 {
		return nil, fmt.Errorf("air: %w", models.ErrNoCarriers)
	}
	legCarriers := catalog.LegCarriers()

	var plans []airPlan
	for _, carrierID := range airIDs {
		cands, err := c.resolver.Resolve(ctx, carrierID, req.Origin, req.Destination)
		if err != nil {
			slog.WarnContext(ctx, "airbase lookup failed", "request_id", req.RequestID, "carrier_id", carrierID, "error", err)
			continue
		}
		for _, pair := range c.topology.Pairs(carrierID, req.Origin, req.Destination, cands) {
			plans = append(plans, buildAirPlan(req, carrierID, legCarriers, pair))
		}
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("air: %w", models.ErrNoRequestsBuilt)
	}

	legs := make([]models.LegRequest, 0, len(plans)*3)
	for _, p := range plans {
		legs = append(legs, p.pickup, p.main, p.delivery)
	}
	results := c.dispatcher.DispatchAll(ctx, legs)

	var out []models.Itinerary
	for i, p := range plans {
		pickup, main, delivery := results[3*i], results[3*i+1], results[3*i+2]
		if len(main) == 0 {
			continue
		}
		mo, md := p.pair.Origin, p.pair.Destination
		out = append(out, models.Itinerary{
			Pickup:         orPlaceholder(pickup),
			Main:           main,
			Delivery:       orPlaceholder(delivery),
			MidOrigin:      &mo,
			MidDestination: &md,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("air: %w", models.ErrNoRatesRetrieved)
	}
	return out, nil
}

func buildAirPlan(req models.ShipmentRequest, carrierID int, legCarriers []int, pair HubPair) airPlan {
	originHub := pair.Origin.AsAddress()
	destinationHub := pair.Destination.AsAddress()
	return airPlan{
		pair: pair,
		pickup: newLeg(models.LegPickup,
			req.WithDestination(originHub).WithCarriers(legCarriers...)),
		main: newLeg(models.LegMain,
			req.WithOrigin(originHub).WithDestination(destinationHub).WithCarriers(carrierID)),
		delivery: newLeg(models.LegDelivery,
			req.WithOrigin(destinationHub).WithCarriers(legCarriers...)),
	}
}
