package compose

import (
	"context"
	"fmt"
	"time"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/dispatch"

	"github.com/google/uuid"
)

// WaypointResolver finds the intermediate points a lane can be split at.
type WaypointResolver interface {
	// Resolve returns the carrier's hubs near each end of the lane.
	Resolve(ctx context.Context, carrierID int, origin, destination models.Address) (models.WaypointCandidates, error)
	// Midpoint returns cross-dock points shared by the two ends of the lane.
	Midpoint(ctx context.Context, origin, destination models.Address) ([]models.Waypoint, error)
	// ResolvePorts returns the carrier's ports with sailings that reach
	// destinationCity and whose cutoff is on or after pickupDate.
	ResolvePorts(ctx context.Context, carrierID int, destinationCity string, pickupDate time.Time, dangerousGoods bool) (map[string]models.PortSailings, error)
}

// ServiceInterface is implemented by Composer; one method per rating mode.
type ServiceInterface interface {
	ComposeGround(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error)
	ComposeAir(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error)
	ComposeSealift(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error)
	ComposeInterline(ctx context.Context, req models.ShipmentRequest) ([]models.InterlineItinerary, error)
}

type Dependency struct {
	Dispatcher      dispatch.ServiceInterface
	Resolver        WaypointResolver
	Topology        []models.TopologyTable
	PackingStations []models.PackingStation
	CrossDockFee    float64
	Location        *time.Location
}

// Composer builds itineraries for every mode on top of the dispatcher.
type Composer struct {
	dispatcher   dispatch.ServiceInterface
	resolver     WaypointResolver
	topology     *Topology
	packing      map[int]models.Waypoint
	crossDockFee float64
	loc          *time.Location
}

func New(dep Dependency) *Composer {
	packing := make(map[int]models.Waypoint, len(dep.PackingStations))
	for _, ps := range dep.PackingStations {
		packing[ps.CarrierID] = ps.Station
	}
	loc := dep.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{
		dispatcher:   dep.Dispatcher,
		resolver:     dep.Resolver,
		topology:     NewTopology(dep.Topology),
		packing:      packing,
		crossDockFee: dep.CrossDockFee,
		loc:          loc,
	}
}

// ComposeGround quotes ground and courier carriers directly, without legs.
func (c *Composer) ComposeGround(ctx context.Context, req models.ShipmentRequest) ([]models.Itinerary, error) {
	ids := c.dispatcher.Catalog().Filter(req.CarrierIDs, dispatch.IsMode(models.ModeGround, models.ModeCourier))
	if len(ids) == 0 {
		return nil, fmt.Errorf("ground: %w", models.ErrNoCarriers)
	}
	quotes := c.dispatcher.Dispatch(ctx, newLeg(models.LegDirect, req.WithCarriers(ids...)))
	if len(quotes) == 0 {
		return nil, fmt.Errorf("ground: %w", models.ErrNoRatesRetrieved)
	}
	return []models.Itinerary{{Main: quotes}}, nil
}

func newLeg(role models.LegRole, req models.ShipmentRequest) models.LegRequest {
	return models.LegRequest{ID: uuid.NewString(), Role: role, Request: req}
}

// orPlaceholder keeps a ground leg alive when no provider priced it.
func orPlaceholder(quotes []models.Quote) []models.Quote {
	if len(quotes) > 0 {
		return quotes
	}
	return []models.Quote{models.PlaceholderQuote(0, "")}
}
