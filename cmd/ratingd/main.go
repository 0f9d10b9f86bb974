package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"freight-rating/internal/config"
	"freight-rating/internal/models"
	"freight-rating/internal/modules/compose"
	"freight-rating/internal/modules/dispatch"
	"freight-rating/internal/modules/rating"
	"freight-rating/pkg/carrier"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	path := os.Getenv("RATING_CONFIG")
	if path == "" {
		path = "."
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	loc := cfg.Rating.Location()
	repo := rating.NewRepository(pool)
	router := dispatch.NewRouter(dispatch.NewCatalog(cfg.Carriers), buildRegistry(cfg, pool))
	composer := compose.New(compose.Dependency{
		Dispatcher:      router,
		Resolver:        repo,
		Topology:        cfg.Topology,
		PackingStations: cfg.Sealift.PackingStations,
		CrossDockFee:    cfg.Rating.CrossDockFee,
		Location:        loc,
	})
	handler := rating.NewHandler(rating.NewService(composer, repo, cfg.Rating.RequestTimeout), pool)

	e := newServer(cfg, handler)
	go func() {
		slog.Info("http server listening", "port", cfg.ServerPort, "carriers", len(cfg.Carriers))
		if err := e.Start(":" + cfg.ServerPort); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			os.Exit(1)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to shut down http server", "error", err)
	}
	slog.Info("application gracefully shutdown")
}

// buildRegistry registers the Postgres rate sheet for RATE_SHEET and one
// HTTP gateway per configured family. Every provider is rate limited and
// retried.
func buildRegistry(cfg *config.Config, pool *pgxpool.Pool) *dispatch.Registry {
	rc := cfg.Rating
	wrap := func(p carrier.Provider) carrier.Provider {
		limited := carrier.NewRateLimited(p, rc.RateLimitPerSecond, rc.RateLimitBurst)
		return carrier.NewRetrying(limited, rc.MaxProviderRetries, rc.RetryBackoff, rc.ProviderTimeout)
	}

	registry := dispatch.NewRegistry()
	registry.Register(models.FamilyRateSheet, wrap(carrier.NewRateSheetProvider(pool, rc.Location())))

	// viper lower-cases map keys
	for key, pc := range cfg.Providers {
		family := models.CarrierFamily(strings.ToUpper(key))
		if pc.BaseURL == "" {
			slog.Warn("provider has no base_url, skipping", "family", family)
			continue
		}
		registry.Register(family, wrap(carrier.NewHTTPProvider(string(family), pc.BaseURL, pc.APIKey, rc.ProviderTimeout)))
	}
	return registry
}

func newServer(cfg *config.Config, handler *rating.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/healthz", handler.Health)

	api := e.Group("/api/v1")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.AccountClaims)
		},
	}))
	handler.RegisterRoutes(api)
	return e
}
