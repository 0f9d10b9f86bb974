package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// Usage:
//
//	seed-markup --account acme --default 12.5 --carrier 20=3 --lane 20:Edmonton:Iqaluit
func main() {
	dsn := pflag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	account := pflag.String("account", "", "account id")
	defaultPct := pflag.String("default", "0", "default markup percent")
	carriers := pflag.StringSlice("carrier", nil, "carrier override as <carrier_id>=<percent>")
	lanes := pflag.StringSlice("lane", nil, "lane rule as <carrier_id>:<origin_city>:<destination_city>")
	pflag.Parse()

	if *account == "" || *dsn == "" {
		pflag.Usage()
		os.Exit(2)
	}
	def, err := decimal.NewFromString(*defaultPct)
	if err != nil {
		log.Fatalf("invalid --default: %v", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, *dsn)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	// Replace the account's markup rows in one transaction.
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO account_markups (account_id, default_percent)
            VALUES ($1, $2::numeric)
            ON CONFLICT (account_id) DO UPDATE SET default_percent = EXCLUDED.default_percent`,
			*account, def.String()); err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM carrier_markups WHERE account_id = $1`, *account); err != nil {
			return fmt.Errorf("clear carrier markups: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM markup_lane_rules WHERE account_id = $1`, *account); err != nil {
			return fmt.Errorf("clear lane rules: %w", err)
		}

		for _, c := range *carriers {
			id, pct, err := parseCarrier(c)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
                INSERT INTO carrier_markups (account_id, carrier_id, percent)
                VALUES ($1, $2, $3::numeric)`, *account, id, pct.String()); err != nil {
				return fmt.Errorf("insert carrier %d: %w", id, err)
			}
		}
		for i, l := range *lanes {
			parts := strings.SplitN(l, ":", 3)
			if len(parts) != 3 {
				return fmt.Errorf("invalid --lane %q", l)
			}
			id, err := strconv.Atoi(parts[0])
			if err != nil {
				return fmt.Errorf("invalid --lane carrier %q: %w", parts[0], err)
			}
			if _, err := tx.Exec(ctx, `
                INSERT INTO markup_lane_rules (account_id, carrier_id, origin_city, destination_city, priority)
                VALUES ($1, $2, $3, $4, $5)`, *account, id, parts[1], parts[2], i); err != nil {
				return fmt.Errorf("insert lane %q: %w", l, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed markup: %v", err)
	}
	fmt.Printf("seeded markup for %s: default %s%%, %d carrier overrides, %d lane rules\n",
		*account, def, len(*carriers), len(*lanes))
}

func parseCarrier(s string) (int, decimal.Decimal, error) {
	idStr, pctStr, ok := strings.Cut(s, "=")
	if !ok {
		return 0, decimal.Zero, fmt.Errorf("invalid --carrier %q", s)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invalid --carrier id %q: %w", idStr, err)
	}
	pct, err := decimal.NewFromString(pctStr)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invalid --carrier percent %q: %w", pctStr, err)
	}
	return id, pct, nil
}
