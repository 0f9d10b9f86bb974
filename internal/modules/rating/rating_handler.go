package rating

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"freight-rating/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the reference database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the rating engine over HTTP.
type Handler struct {
	svc ServiceInterface
	db  Pinger
}

// NewHandler creates a rating handler. db may be nil, in which case the
// health check only reports that the process is up.
func NewHandler(svc ServiceInterface, db Pinger) *Handler {
	return &Handler{svc: svc, db: db}
}

// RegisterRoutes mounts the rating endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/rates", h.Rate)
	g.POST("/rates/tiers", h.Tiers)
}

// Rate returns every priced itinerary for the shipment.
func (h *Handler) Rate(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	resp, err := h.svc.Rate(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, "Handler.Rate", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Tiers returns the economy, standard and express picks for the shipment.
func (h *Handler) Tiers(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	resp, err := h.svc.Tiers(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, "Handler.Tiers", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Health pings the database with a short deadline.
func (h *Handler) Health(c echo.Context) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "database unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// bindRequest decodes the body and lets the token's account override the
// body's account context.
func (h *Handler) bindRequest(c echo.Context) (models.ShipmentRequest, error) {
	var req models.ShipmentRequest
	if err := c.Bind(&req); err != nil {
		return req, err
	}
	if accountID := accountFromToken(c); accountID != "" {
		req.AccountID = accountID
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" && req.RequestID == "" {
		req.RequestID = id
	}
	return req, nil
}

func accountFromToken(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(*models.AccountClaims)
	if !ok {
		return ""
	}
	return claims.AccountID
}

func (h *Handler) writeError(c echo.Context, op string, err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: verr.Error()})
	case errors.Is(err, models.ErrNoAvailableCarriers):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: models.ErrNoAvailableCarriers.Error()})
	}
	slog.ErrorContext(c.Request().Context(), op+" failed", "error", err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to rate shipment"})
}
