package compose

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/dispatch"
)

type sealiftPlan struct {
	port   models.Waypoint
	pickup models.LegRequest
	main   models.LegRequest
}

// ComposeSealift pairs a ground pickup leg into each eligible port with the
// sealift main leg out of that port.
func (c *Composer) ComposeSealift(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error) {
	catalog := c.dispatcher.Catalog()
	sealiftIDs := catalog.Filter(req.CarrierIDs, dispatch.IsMode(models.ModeSealift))
	groundIDs := catalog.Filter(req.CarrierIDs, dispatch.IsMode(models.ModeGround))
	if len(sealiftIDs) == 0 || len(groundIDs) == 0 {
		return nil, fmt.Errorf("sealift: %w", models.ErrNoCarriers)
	}

	pickupDate := req.PickupDay(c.loc)
	var plans []sealiftPlan
	for _, carrierID := range sealiftIDs {
		ports, err := c.resolver.ResolvePorts(ctx, carrierID, req.Destination.City, pickupDate, req.IsDangerousGoods)
		if err != nil {
			slog.WarnContext(ctx, "sailing lookup failed", "request_id", req.RequestID, "carrier_id", carrierID, "error", err)
			continue
		}
		codes := make([]string, 0, len(ports))
		for code := range ports {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			ps := ports[code]
			if len(ps.Sailings) == 0 {
				continue
			}
			plans = append(plans, c.buildSealiftPlan(req, carrierID, groundIDs, ps))
		}
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("sealift: %w", models.ErrNoRequestsBuilt)
	}

	legs := make([]models.LegRequest, 0, len(plans)*2)
	for _, p := range plans {
		legs = append(legs, p.pickup, p.main)
	}
	results := c.dispatcher.DispatchAll(ctx, legs)

	var out []models.Itinerary
	for i, p := range plans {
		pickup, main := results[2*i], results[2*i+1]
		if len(main) == 0 {
			continue
		}
		port := p.port
		out = append(out, models.Itinerary{
			Pickup:    orPlaceholder(pickup),
			Main:      main,
			MidOrigin: &port,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sealift: %w", models.ErrNoRatesRetrieved)
	}
	return out, nil
}

func (c *Composer) buildSealiftPlan(req models.ShipmentRequest, carrierID int, groundIDs []int, ps models.PortSailings) sealiftPlan {
	dropOff := ps.Port.AsAddress()
	if req.IsPacking {
		if station, ok := c.packing[carrierID]; ok {
			dropOff = station.AsAddress()
		}
	}
	return sealiftPlan{
		port: ps.Port,
		pickup: newLeg(models.LegPickup,
			req.WithDestination(dropOff).WithCarriers(groundIDs...)),
		main: newLeg(models.LegMain,
			req.WithOrigin(ps.Port.AsAddress()).WithCarriers(carrierID).WithSailings(ps.Sailings...)),
	}
}
