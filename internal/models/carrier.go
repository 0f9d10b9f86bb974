package models

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CarrierFamily partitions carrier IDs by the adapter that rates them.
type CarrierFamily string

const (
	FamilyRateSheet     CarrierFamily = "RATE_SHEET"
	FamilyCourierBroker CarrierFamily = "COURIER_BROKER"
	FamilySkyline       CarrierFamily = "SKYLINE"
	FamilySealift       CarrierFamily = "SEALIFT"

	namedFamilyPrefix = "CARRIER:"
)

// NamedFamily is the single-carrier family for carriers with their own adapter.
func NamedFamily(carrierID int) CarrierFamily {
	return CarrierFamily(fmt.Sprintf("%s%d", namedFamilyPrefix, carrierID))
}

// IsNamed reports whether f is a single-carrier family.
func (f CarrierFamily) IsNamed() bool {
	return strings.HasPrefix(string(f), namedFamilyPrefix)
}

// Carrier is one entry of the carrier catalog.
type Carrier struct {
	ID          int           `mapstructure:"id"`
	Name        string        `mapstructure:"name"`
	Family      CarrierFamily `mapstructure:"family"`
	Mode        Mode          `mapstructure:"mode"`
	NoInterline bool          `mapstructure:"no_interline"`
}

// AccountClaims are the JWT claims the rating API expects.
type AccountClaims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}
