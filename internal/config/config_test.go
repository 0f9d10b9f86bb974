package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"freight-rating/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
SERVER_PORT: "9090"
rating:
  request_timeout: 3s
  cross_dock_fee: 12.5
carriers:
  - { id: 1, name: "Sheet", family: RATE_SHEET, mode: ground }
  - { id: 21, name: "Polar", family: CARRIER, mode: air, no_interline: true }
providers:
  CARRIER:21:
    base_url: "http://polar:9000"
topology:
  - carrier_id: 21
    policy: alternate_hubs
    regions:
      - { name: deep-north, postal_prefixes: ["X0A"], hubs: ["YFB"] }
`)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q; want 9090", cfg.ServerPort)
	}
	if cfg.Rating.RequestTimeout != 3*time.Second || cfg.Rating.CrossDockFee != 12.5 {
		t.Errorf("rating = %+v", cfg.Rating)
	}
	if cfg.Rating.ProviderTimeout != 10*time.Second || cfg.Rating.MaxProviderRetries != 2 {
		t.Errorf("defaults not applied: %+v", cfg.Rating)
	}
	if len(cfg.Carriers) != 2 || !cfg.Carriers[1].NoInterline || cfg.Carriers[1].Mode != models.ModeAir {
		t.Errorf("carriers = %+v", cfg.Carriers)
	}
	if pc, ok := cfg.Providers["carrier:21"]; !ok || pc.BaseURL != "http://polar:9000" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if len(cfg.Topology) != 1 || cfg.Topology[0].Policy != models.PolicyAlternateHubs || cfg.Topology[0].Regions[0].Hubs[0] != "YFB" {
		t.Errorf("topology = %+v", cfg.Topology)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v; want debug", cfg.SlogLevel())
	}
}

func TestLoadConfigRejectsBadCatalog(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"duplicate carrier", `
carriers:
  - { id: 1, family: RATE_SHEET, mode: ground }
  - { id: 1, family: SKYLINE, mode: air }
`, "declared twice"},
		{"missing family", `
carriers:
  - { id: 1, mode: ground }
`, "no family"},
		{"unknown topology carrier", `
carriers:
  - { id: 1, family: RATE_SHEET, mode: ground }
topology:
  - { carrier_id: 99, policy: nearest }
`, "unknown carrier 99"},
	}
	for _, tt := range tests {
		_, err := LoadConfig(writeConfig(t, tt.body))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v; want it to mention %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.Rating.TimeZone != "America/Edmonton" {
		t.Errorf("defaults = %q, %q", cfg.ServerPort, cfg.Rating.TimeZone)
	}
	if (RatingConfig{}).Location() != time.UTC {
		t.Error("empty time zone should resolve to UTC")
	}
}
