package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"freight-rating/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
)

// Prints an HS256 token for calling /api/v1 as the given account.
func main() {
	account := pflag.String("account", "", "account id to embed in the token")
	secret := pflag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	if *account == "" || *secret == "" {
		pflag.Usage()
		os.Exit(2)
	}

	now := time.Now()
	claims := models.AccountClaims{
		AccountID: *account,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *account,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*secret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(signed)
}
