package carrier

import (
	"context"
	"errors"
	"time"

	"freight-rating/internal/models"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls into a provider with a token bucket.
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimited allows perSecond calls with the given burst. A
// non-positive perSecond disables the limit.
func NewRateLimited(p Provider, perSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{provider: p, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Name() string {
	return r.provider.Name()
}

func (r *RateLimited) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Rate(ctx, leg)
}

// Retrying retries models.ErrRateUnavailable with exponential backoff. Each
// attempt gets its own timeout.
type Retrying struct {
	provider       Provider
	maxRetries     int
	backoff        time.Duration
	attemptTimeout time.Duration
}

// NewRetrying makes at most maxRetries+1 attempts. A negative maxRetries is
// treated as zero so the provider is always called once.
func NewRetrying(p Provider, maxRetries int, backoff, attemptTimeout time.Duration) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retrying{
		provider:       p,
		maxRetries:     maxRetries,
		backoff:        backoff,
		attemptTimeout: attemptTimeout,
	}
}

func (r *Retrying) Name() string {
	return r.provider.Name()
}

func (r *Retrying) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	backoff := r.backoff
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		quotes, err := r.attempt(ctx, leg)
		if err == nil {
			return quotes, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, lastErr
}

func (r *Retrying) attempt(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	if r.attemptTimeout <= 0 {
		return r.provider.Rate(ctx, leg)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()
	quotes, err := r.provider.Rate(attemptCtx, leg)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, errors.Join(models.ErrRateUnavailable, err)
	}
	return quotes, err
}

func retryable(err error) bool {
	var cfgErr *models.ProviderConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	return errors.Is(err, models.ErrRateUnavailable)
}
