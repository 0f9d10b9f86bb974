package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/aggregate"
	"freight-rating/internal/modules/compose"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ServiceInterface is what the HTTP handler needs from the rating engine.
type ServiceInterface interface {
	Rate(ctx context.Context, req models.ShipmentRequest) (*models.AggregatedResponse, error)
	Tiers(ctx context.Context, req models.ShipmentRequest) (*models.TierResponse, error)
}

// MarkupRepository loads the per-account reference data read before fan-out.
type MarkupRepository interface {
	LoadMarkupPolicy(ctx context.Context, accountID string) (*aggregate.MarkupPolicy, error)
}

// service is the ServiceInterface implementation. It runs every composer for
// a request and merges their itineraries.
type service struct {
	composer compose.ServiceInterface
	markups  MarkupRepository
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
}

// NewService wires the orchestrator. A zero timeout leaves the caller's
// context as the only deadline.
func NewService(composer compose.ServiceInterface, markups MarkupRepository, timeout time.Duration) ServiceInterface {
	return &service{
		composer: composer,
		markups:  markups,
		validate: validator.New(),
		timeout:  timeout,
		now:      time.Now,
	}
}

// modeResult is one composer's contribution; err is kept for logging only.
type modeResult struct {
	itineraries []models.Itinerary
	interline   []models.InterlineItinerary
	err         error
}

// Rate validates req, loads the account's markup policy once, runs the four
// composers concurrently and joins whatever they produced. Only validation
// and an empty merged response fail the call.
func (s *service) Rate(ctx context.Context, req models.ShipmentRequest) (*models.AggregatedResponse, error) {
	// 1) reject malformed requests before any provider is called
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	// 2) markup reference data is read once, before fan-out
	policy, err := s.markups.LoadMarkupPolicy(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("Rate: load markup policy: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// 3) every mode runs on its own copy of the request; a mode error only
	// removes that mode from the response
	var air, sealift, ground, interline modeResult
	var g errgroup.Group
	g.Go(func() error {
		ground.itineraries, ground.err = s.composer.ComposeGround(ctx, req.Clone())
		return nil
	})
	g.Go(func() error {
		air.itineraries, air.err = s.composer.ComposeAir(ctx, req.Clone())
		return nil
	})
	g.Go(func() error {
		sealift.itineraries, sealift.err = s.composer.ComposeSealift(ctx, req.Clone())
		return nil
	})
	g.Go(func() error {
		interline.interline, interline.err = s.composer.ComposeInterline(ctx, req.Clone())
		return nil
	})
	_ = g.Wait()

	for mode, res := range map[models.Mode]modeResult{
		models.ModeGround:    ground,
		models.ModeAir:       air,
		models.ModeSealift:   sealift,
		models.ModeInterline: interline,
	} {
		if res.err != nil {
			slog.InfoContext(ctx, "rating mode produced nothing", "request_id", req.RequestID, "mode", mode, "error", res.err)
		}
	}

	if len(ground.itineraries)+len(air.itineraries)+len(sealift.itineraries)+len(interline.interline) == 0 {
		return nil, models.ErrNoAvailableCarriers
	}

	// 4) merge; Join can still drop everything, e.g. an interline pair with a
	// pending side
	agg := aggregate.New(policy).WithClock(s.now)
	resp := agg.Join(aggregate.Lane{
		AccountID:       req.AccountID,
		OriginCity:      req.Origin.City,
		DestinationCity: req.Destination.City,
	}, aggregate.Input{
		Air:       air.itineraries,
		Sealift:   sealift.itineraries,
		Ground:    ground.itineraries,
		Interline: interline.interline,
	})
	if len(resp.Rates) == 0 {
		return nil, models.ErrNoAvailableCarriers
	}
	slog.DebugContext(ctx, "rating complete", "request_id", req.RequestID, "rates", len(resp.Rates), "carriers", len(resp.Carriers))
	return &resp, nil
}

// Tiers rates req and reduces the response to economy, standard and express.
func (s *service) Tiers(ctx context.Context, req models.ShipmentRequest) (*models.TierResponse, error) {
	resp, err := s.Rate(ctx, req)
	if err != nil {
		return nil, err
	}
	tiers := aggregate.Select(*resp)
	return &tiers, nil
}

func (s *service) validateRequest(req models.ShipmentRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &models.ValidationError{Fields: []string{err.Error()}}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return &models.ValidationError{Fields: fields}
}
