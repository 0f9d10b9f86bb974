package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/aggregate"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RepositoryInterface is the reference data the rating engine reads.
type RepositoryInterface interface {
	// ===== Waypoints =====
	// Resolve returns a carrier's hubs serving each end of the lane, nearest first.
	Resolve(ctx context.Context, carrierID int, origin, destination models.Address) (models.WaypointCandidates, error)
	// Midpoint returns cross-dock points for the origin/destination province pair.
	Midpoint(ctx context.Context, origin, destination models.Address) ([]models.Waypoint, error)
	// ResolvePorts groups sailings reaching destinationCity by port code.
	ResolvePorts(ctx context.Context, carrierID int, destinationCity string, pickupDate time.Time, dangerousGoods bool) (map[string]models.PortSailings, error)

	// ===== Markup =====
	// LoadMarkupPolicy reads an account's markup configuration.
	LoadMarkupPolicy(ctx context.Context, accountID string) (*aggregate.MarkupPolicy, error)
}

// Repository implements RepositoryInterface on PostgreSQL (pgxpool.Pool).
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ===== Waypoints =====

// Resolve ranks bases that list the city among their served cities before
// bases that only share the province.
func (r *Repository) Resolve(ctx context.Context, carrierID int, origin, destination models.Address) (models.WaypointCandidates, error) {
	from, err := r.basesServing(ctx, carrierID, origin)
	if err != nil {
		return models.WaypointCandidates{}, err
	}
	to, err := r.basesServing(ctx, carrierID, destination)
	if err != nil {
		return models.WaypointCandidates{}, err
	}
	return models.WaypointCandidates{Origin: from, Destination: to}, nil
}

func (r *Repository) basesServing(ctx context.Context, carrierID int, addr models.Address) ([]models.Waypoint, error) {
	const query = `
        SELECT base, address, city, province, country, postal_code
        FROM carrier_bases
        WHERE carrier_id = $1
          AND ($2 = ANY(served_cities) OR province = $3)
        ORDER BY ($2 = ANY(served_cities)) DESC, priority, base`
	rows, err := r.db.Query(ctx, query, carrierID, strings.ToLower(strings.TrimSpace(addr.City)), strings.ToUpper(addr.Province))
	if err != nil {
		return nil, fmt.Errorf("basesServing failed: %w", err)
	}
	return collectWaypoints(rows, "basesServing")
}

// Midpoint returns the cross-dock points configured for the province pair,
// best first.
func (r *Repository) Midpoint(ctx context.Context, origin, destination models.Address) ([]models.Waypoint, error) {
	const query = `
        SELECT base, address, city, province, country, postal_code
        FROM crossdock_points
        WHERE origin_province = $1 AND destination_province = $2
        ORDER BY priority, base`
	rows, err := r.db.Query(ctx, query, strings.ToUpper(origin.Province), strings.ToUpper(destination.Province))
	if err != nil {
		return nil, fmt.Errorf("Midpoint failed: %w", err)
	}
	return collectWaypoints(rows, "Midpoint")
}

func collectWaypoints(rows pgx.Rows, op string) ([]models.Waypoint, error) {
	defer rows.Close()

	var out []models.Waypoint
	for rows.Next() {
		var w models.Waypoint
		if err := rows.Scan(&w.Base, &w.Address, &w.City, &w.Province, &w.Country, &w.PostalCode); err != nil {
			return nil, fmt.Errorf("%s Scan failed: %w", op, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows failed: %w", op, err)
	}
	return out, nil
}

// ResolvePorts filters sailings by the dangerous-goods or cargo cutoff,
// whichever applies, and groups them by port.
func (r *Repository) ResolvePorts(ctx context.Context, carrierID int, destinationCity string, pickupDate time.Time, dangerousGoods bool) (map[string]models.PortSailings, error) {
	cutoff := "s.cargo_cutoff"
	if dangerousGoods {
		cutoff = "s.dg_cutoff"
	}
	query := `
        SELECT p.code, p.address, p.city, p.province, p.country, p.postal_code, s.sailing_id
        FROM sealift_sailings s
        JOIN sealift_ports p ON p.carrier_id = s.carrier_id AND p.code = s.port_code
        WHERE s.carrier_id = $1
          AND lower(s.destination_city) = lower($2)
          AND ` + cutoff + ` >= $3
        ORDER BY p.code, s.sails_at`
	rows, err := r.db.Query(ctx, query, carrierID, strings.TrimSpace(destinationCity), pickupDate)
	if err != nil {
		return nil, fmt.Errorf("ResolvePorts failed: %w", err)
	}
	defer rows.Close()

	ports := make(map[string]models.PortSailings)
	for rows.Next() {
		var (
			port      models.Waypoint
			sailingID string
		)
		if err := rows.Scan(&port.Base, &port.Address, &port.City, &port.Province, &port.Country, &port.PostalCode, &sailingID); err != nil {
			return nil, fmt.Errorf("ResolvePorts Scan failed: %w", err)
		}
		ps, ok := ports[port.Base]
		if !ok {
			ps.Port = port
		}
		ps.Sailings = append(ps.Sailings, sailingID)
		ports[port.Base] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ResolvePorts rows failed: %w", err)
	}
	return ports, nil
}

// ===== Markup =====

// LoadMarkupPolicy returns a zero policy for accounts without a markup row.
func (r *Repository) LoadMarkupPolicy(ctx context.Context, accountID string) (*aggregate.MarkupPolicy, error) {
	policy := &aggregate.MarkupPolicy{
		AccountID:      accountID,
		CarrierPercent: make(map[int]decimal.Decimal),
	}

	const accountQuery = `
        SELECT default_percent::text
        FROM account_markups
        WHERE account_id = $1`
	var raw string
	err := r.db.QueryRow(ctx, accountQuery, accountID).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return policy, nil
	case err != nil:
		return nil, fmt.Errorf("LoadMarkupPolicy failed: %w", err)
	}
	if policy.DefaultPercent, err = decimal.NewFromString(raw); err != nil {
		return nil, fmt.Errorf("LoadMarkupPolicy default_percent: %w", err)
	}

	const carrierQuery = `
        SELECT carrier_id, percent::text
        FROM carrier_markups
        WHERE account_id = $1`
	rows, err := r.db.Query(ctx, carrierQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("LoadMarkupPolicy carriers failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var carrierID int
		if err := rows.Scan(&carrierID, &raw); err != nil {
			return nil, fmt.Errorf("LoadMarkupPolicy carriers Scan failed: %w", err)
		}
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("LoadMarkupPolicy carrier %d percent: %w", carrierID, err)
		}
		policy.CarrierPercent[carrierID] = pct
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadMarkupPolicy carriers rows failed: %w", err)
	}

	const laneQuery = `
        SELECT account_id, carrier_id, origin_city, destination_city
        FROM markup_lane_rules
        WHERE account_id = $1
        ORDER BY priority`
	laneRows, err := r.db.Query(ctx, laneQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("LoadMarkupPolicy lanes failed: %w", err)
	}
	rules, err := pgx.CollectRows(laneRows, pgx.RowToStructByPos[aggregate.LaneRule])
	if err != nil {
		return nil, fmt.Errorf("LoadMarkupPolicy lanes Scan failed: %w", err)
	}
	policy.LaneRules = rules
	return policy, nil
}
