package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"freight-rating/internal/models"
)

// RateProvider is the capability every carrier adapter implements.
type RateProvider interface {
	Name() string
	Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error)
}

// Registry maps each carrier family to the provider that rates it.
type Registry struct {
	providers map[models.CarrierFamily]RateProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[models.CarrierFamily]RateProvider)}
}

// Register binds family to p, replacing any earlier binding.
func (r *Registry) Register(family models.CarrierFamily, p RateProvider) {
	r.providers[family] = p
}

func (r *Registry) Provider(family models.CarrierFamily) (RateProvider, bool) {
	p, ok := r.providers[family]
	return p, ok
}

// ServiceInterface is what the composers need from the dispatcher.
type ServiceInterface interface {
	Dispatch(ctx context.Context, leg models.LegRequest) []models.Quote
	DispatchAll(ctx context.Context, legs []models.LegRequest) [][]models.Quote
	Catalog() *Catalog
}

// Router fans a leg out to one provider per carrier family and joins the results.
type Router struct {
	catalog  *Catalog
	registry *Registry
}

func NewRouter(catalog *Catalog, registry *Registry) *Router {
	return &Router{catalog: catalog, registry: registry}
}

func (r *Router) Catalog() *Catalog {
	return r.catalog
}

type familyResult struct {
	family models.CarrierFamily
	quotes []models.Quote
	err    error
}

// Dispatch partitions the leg's carriers by family, invokes every family's
// provider concurrently and flattens the quotes. A failing provider is logged
// and contributes nothing; it never fails the call.
func (r *Router) Dispatch(ctx context.Context, leg models.LegRequest) []models.Quote {
	partition := r.catalog.Partition(leg.Request.CarrierIDs)
	if len(partition) == 0 {
		return nil
	}

	families := make([]models.CarrierFamily, 0, len(partition))
	for family := range partition {
		families = append(families, family)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })

	resCh := make(chan familyResult, len(families))
	for _, family := range families {
		sub := leg
		sub.Request = leg.Request.WithCarriers(partition[family]...)
		go func(family models.CarrierFamily) {
			quotes, err := r.invoke(ctx, family, sub)
			resCh <- familyResult{family: family, quotes: quotes, err: err}
		}(family)
	}

	byFamily := make(map[models.CarrierFamily][]models.Quote, len(families))
	for i := 0; i < len(families); i++ {
		res := <-resCh
		if res.err != nil {
			logProviderError(ctx, leg, res.err)
			continue
		}
		byFamily[res.family] = res.quotes
	}

	var quotes []models.Quote
	for _, family := range families {
		quotes = append(quotes, byFamily[family]...)
	}
	return quotes
}

// DispatchAll dispatches every leg concurrently. The i-th result belongs to legs[i].
func (r *Router) DispatchAll(ctx context.Context, legs []models.LegRequest) [][]models.Quote {
	out := make([][]models.Quote, len(legs))
	var wg sync.WaitGroup
	for i := range legs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = r.Dispatch(ctx, legs[i])
		}(i)
	}
	wg.Wait()
	return out
}

func (r *Router) invoke(ctx context.Context, family models.CarrierFamily, leg models.LegRequest) (quotes []models.Quote, err error) {
	provider, ok := r.registry.Provider(family)
	if !ok {
		return nil, &models.ProviderError{
			Family: family,
			Err:    &models.ProviderConfigError{Provider: string(family), Reason: "no provider registered"},
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			quotes = nil
			err = &models.ProviderError{Family: family, Err: fmt.Errorf("provider %s panicked: %v", provider.Name(), rec)}
		}
	}()

	quotes, err = provider.Rate(ctx, leg)
	if err != nil {
		return nil, &models.ProviderError{Family: family, Err: err}
	}
	return quotes, nil
}

func logProviderError(ctx context.Context, leg models.LegRequest, err error) {
	attrs := []any{
		"request_id", leg.Request.RequestID,
		"leg_id", leg.ID,
		"role", leg.Role,
		"carrier_ids", leg.Request.CarrierIDs,
		"error", err,
	}
	var perr *models.ProviderError
	if errors.As(err, &perr) {
		attrs = append(attrs, "family", perr.Family)
	}
	var cfgErr *models.ProviderConfigError
	if errors.As(err, &cfgErr) {
		slog.ErrorContext(ctx, "provider configuration error", attrs...)
		return
	}
	slog.WarnContext(ctx, "provider rate failed", attrs...)
}
