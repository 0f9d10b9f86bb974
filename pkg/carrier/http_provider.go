// Package carrier holds the RateProvider implementations the dispatcher
// registers per carrier family, plus decorators for retry and rate limiting.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"freight-rating/internal/models"
)

// Provider is the capability every carrier family exposes to the dispatcher.
type Provider interface {
	Name() string
	Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error)
}

// HTTPProvider rates legs against a family's JSON rating gateway.
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPProvider(name, baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

type gatewayResponse struct {
	Quotes []models.Quote `json:"quotes"`
	Error  string         `json:"error,omitempty"`
}

// Rate posts the leg to {base_url}/rate. Transport failures and 5xx replies
// are reported as models.ErrRateUnavailable; 4xx replies as a configuration
// error.
func (p *HTTPProvider) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	payload, err := json.Marshal(leg)
	if err != nil {
		return nil, &models.ProviderConfigError{Provider: p.name, Reason: "encode leg: " + err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/rate", bytes.NewReader(payload))
	if err != nil {
		return nil, &models.ProviderConfigError{Provider: p.name, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w: %v", p.name, models.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", p.name, models.ErrRateUnavailable, err)
	}

	var out gatewayResponse
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%s: %w: status %d", p.name, models.ErrRateUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		_ = json.Unmarshal(body, &out)
		reason := out.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &models.ProviderConfigError{Provider: p.name, Reason: reason}
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: %w: decode: %v", p.name, models.ErrRateUnavailable, err)
	}
	return out.Quotes, nil
}
