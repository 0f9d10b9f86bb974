package models

import (
	"errors"
	"fmt"
	"strings"
)

// Mode-level errors. The orchestrator logs these and drops the mode.
var ErrNoCarriers = errors.New("no eligible carriers for mode")
var ErrNoRequestsBuilt = errors.New("no itinerary requests could be built")
var ErrNoMidpoint = errors.New("no cross-dock midpoint for lane")
var ErrNoRatesRetrieved = errors.New("no rates retrieved for built itineraries")

// ErrNoAvailableCarriers is returned when every mode came back empty.
var ErrNoAvailableCarriers = errors.New("no available carriers for request")

// ErrRateUnavailable is the non-fatal, retryable provider failure.
var ErrRateUnavailable = errors.New("rate unavailable")

// ValidationError reports a malformed top-level request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid shipment request"
	}
	return "invalid shipment request: " + strings.Join(e.Fields, "; ")
}

// ProviderConfigError means a provider rejected the leg because of its own
// configuration or the leg's shape. Retrying will not help.
type ProviderConfigError struct {
	Provider string
	Reason   string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("provider %s: configuration error: %s", e.Provider, e.Reason)
}

// ProviderError wraps one failed provider invocation.
type ProviderError struct {
	Family CarrierFamily
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider family %s: %v", e.Family, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
