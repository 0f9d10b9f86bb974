package rating

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freight-rating/internal/models"
	"freight-rating/internal/modules/aggregate"
	"freight-rating/internal/modules/compose"
	"freight-rating/internal/modules/dispatch"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// fakes: providers, waypoint data and markup storage
// ----------------------------------------------------------------------------
type stubProvider struct {
	name string
	code string
	fail bool
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Rate(_ context.Context, leg models.LegRequest) ([]models.Quote, error) {
	if p.fail {
		return nil, models.ErrRateUnavailable
	}
	var out []models.Quote
	for _, id := range leg.Request.CarrierIDs {
		out = append(out, models.Quote{CarrierID: id, ServiceCode: p.code, Freight: 90, Tax: 10, TaxPercent: 5, Total: 100, TransitDays: 2})
	}
	return out, nil
}

// roleProvider only quotes legs whose role is listed in roles.
type roleProvider struct {
	roles []models.LegRole
}

func (p roleProvider) Name() string { return "by-role" }

func (p roleProvider) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	for _, r := range p.roles {
		if r == leg.Role {
			return stubProvider{code: "LTL"}.Rate(ctx, leg)
		}
	}
	return nil, models.ErrRateUnavailable
}

type fakeRepo struct {
	candidates map[int]models.WaypointCandidates
	mids       []models.Waypoint
	policy     *aggregate.MarkupPolicy
	policyErr  error
}

func (f *fakeRepo) Resolve(_ context.Context, carrierID int, _, _ models.Address) (models.WaypointCandidates, error) {
	return f.candidates[carrierID], nil
}

func (f *fakeRepo) Midpoint(context.Context, models.Address, models.Address) ([]models.Waypoint, error) {
	return f.mids, nil
}

func (f *fakeRepo) ResolvePorts(context.Context, int, string, time.Time, bool) (map[string]models.PortSailings, error) {
	return nil, nil
}

func (f *fakeRepo) LoadMarkupPolicy(_ context.Context, accountID string) (*aggregate.MarkupPolicy, error) {
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	if f.policy == nil {
		return &aggregate.MarkupPolicy{AccountID: accountID}, nil
	}
	return f.policy, nil
}

var _ RepositoryInterface = (*fakeRepo)(nil)

// ----------------------------------------------------------------------------
// newTestService: real dispatcher and composers over stub providers
// ----------------------------------------------------------------------------
func newTestService(repo *fakeRepo, groundFails, airFails bool) ServiceInterface {
	registry := dispatch.NewRegistry()
	registry.Register(models.FamilyRateSheet, stubProvider{name: "sheet", code: "LTL", fail: groundFails})
	registry.Register(models.FamilySkyline, stubProvider{name: "skyline", code: "AIR", fail: airFails})
	return newServiceWith(repo, registry)
}

func newServiceWith(repo *fakeRepo, registry *dispatch.Registry) ServiceInterface {
	catalog := dispatch.NewCatalog([]models.Carrier{
		{ID: 1, Name: "Northern Freight", Family: models.FamilyRateSheet, Mode: models.ModeGround},
		{ID: 20, Name: "Skyline Air", Family: models.FamilySkyline, Mode: models.ModeAir},
	})
	composer := compose.New(compose.Dependency{
		Dispatcher:   dispatch.NewRouter(catalog, registry),
		Resolver:     repo,
		CrossDockFee: 25,
	})
	return NewService(composer, repo, 5*time.Second)
}

func withHubs() *fakeRepo {
	return &fakeRepo{candidates: map[int]models.WaypointCandidates{
		20: {
			Origin:      []models.Waypoint{{Base: "YEG", City: "Edmonton", Province: "AB", Country: "CA"}},
			Destination: []models.Waypoint{{Base: "YFB", City: "Iqaluit", Province: "NU", Country: "CA"}},
		},
	}}
}

func validRequest(ids ...int) models.ShipmentRequest {
	return models.ShipmentRequest{
		AccountID:   "acct-1",
		Origin:      models.Address{City: "Edmonton", Province: "AB", Country: "CA", PostalCode: "T5J 0N3"},
		Destination: models.Address{City: "Iqaluit", Province: "NU", Country: "CA", PostalCode: "X0A 0H0"},
		Packages:    []models.Package{{Quantity: 2, Length: 48, Width: 40, Height: 40, Weight: 300, Imperial: true}},
		CarrierIDs:  ids,
	}
}

// ----------------------------------------------------------------------------
// Service
// ----------------------------------------------------------------------------

func TestRateGroundAndAir(t *testing.T) {
	svc := newTestService(withHubs(), false, false)

	resp, err := svc.Rate(context.Background(), validRequest(1, 20))
	if err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	if len(resp.Rates) != 2 {
		t.Fatalf("rates = %d; want 2 (direct ground + air)", len(resp.Rates))
	}
	var sawAir, sawGround bool
	for _, r := range resp.Rates {
		switch r.Mode {
		case models.ModeAir:
			sawAir = len(r.Middle) > 0 && r.PickupIndex != nil && r.DeliveryIndex != nil
		case models.ModeGround:
			sawGround = r.CarrierID == 1
		}
	}
	if !sawAir || !sawGround {
		t.Errorf("rates = %+v; want one ground and one air itinerary", resp.Rates)
	}
	if len(resp.Carriers) != 2 {
		t.Errorf("carriers = %v; want 2 distinct pairs", resp.Carriers)
	}
}

func TestRateAppliesMarkup(t *testing.T) {
	repo := withHubs()
	repo.policy = &aggregate.MarkupPolicy{AccountID: "acct-1", DefaultPercent: decimal.NewFromInt(10)}
	svc := newTestService(repo, false, false)

	resp, err := svc.Rate(context.Background(), validRequest(1))
	if err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	got := resp.Rates[0].Middle[0]
	if got.Total != 110 || got.Freight != 99 || got.Tax != 11 {
		t.Errorf("marked up = %+v; want freight 99, tax 11, total 110", got)
	}
}

func TestRateValidation(t *testing.T) {
	svc := newTestService(withHubs(), false, false)
	req := validRequest()
	req.AccountID = ""

	_, err := svc.Rate(context.Background(), req)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v; want ValidationError", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("fields = %v; want account and carrier list", verr.Fields)
	}
}

func TestRateNoAvailableCarriers(t *testing.T) {
	svc := newTestService(withHubs(), true, true)

	_, err := svc.Rate(context.Background(), validRequest(1, 20))
	if !errors.Is(err, models.ErrNoAvailableCarriers) {
		t.Errorf("err = %v; want ErrNoAvailableCarriers", err)
	}
}

func TestRatePartialFailure(t *testing.T) {
	svc := newTestService(withHubs(), true, false)

	resp, err := svc.Rate(context.Background(), validRequest(1, 20))
	if err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	if len(resp.Rates) != 1 || resp.Rates[0].Mode != models.ModeAir {
		t.Fatalf("rates = %+v; want the air itinerary only", resp.Rates)
	}
	if len(resp.PickupRates) != 1 || !resp.PickupRates[0][0].IsPlaceholder() {
		t.Errorf("pickup = %+v; want a placeholder", resp.PickupRates)
	}
}

func TestRateInterlineWithPendingSide(t *testing.T) {
	crossDock := models.Waypoint{Base: "XD-WPG", City: "Winnipeg", Province: "MB", Country: "CA"}
	tests := []struct {
		name      string
		roles     []models.LegRole
		wantRates int
	}{
		{"last mile unpriced", []models.LegRole{models.LegPickup}, 0},
		{"first mile unpriced", []models.LegRole{models.LegDelivery}, 0},
		{"both sides priced", []models.LegRole{models.LegPickup, models.LegDelivery}, 1},
	}
	for _, tt := range tests {
		registry := dispatch.NewRegistry()
		registry.Register(models.FamilyRateSheet, roleProvider{roles: tt.roles})
		svc := newServiceWith(&fakeRepo{mids: []models.Waypoint{crossDock}}, registry)

		resp, err := svc.Rate(context.Background(), validRequest(1))
		if tt.wantRates == 0 {
			if !errors.Is(err, models.ErrNoAvailableCarriers) {
				t.Errorf("%s: err = %v, resp = %+v; want ErrNoAvailableCarriers", tt.name, err, resp)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: Rate error: %v", tt.name, err)
		}
		if len(resp.Rates) != tt.wantRates || resp.Rates[0].Mode != models.ModeInterline {
			t.Errorf("%s: rates = %+v; want one interline rate", tt.name, resp.Rates)
		}
	}
}

func TestTiers(t *testing.T) {
	svc := newTestService(withHubs(), false, false)

	tiers, err := svc.Tiers(context.Background(), validRequest(1, 20))
	if err != nil {
		t.Fatalf("Tiers error: %v", err)
	}
	if tiers.Economy == nil || tiers.Standard == nil || tiers.Express == nil {
		t.Errorf("tiers = %+v; want all three picks", tiers)
	}
}

// ----------------------------------------------------------------------------
// Handler
// ----------------------------------------------------------------------------
type fakeService struct {
	got models.ShipmentRequest
	err error
}

func (f *fakeService) Rate(_ context.Context, req models.ShipmentRequest) (*models.AggregatedResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.AggregatedResponse{
		Rates:         []models.MergedRate{},
		PickupRates:   [][]models.Quote{},
		DeliveryRates: [][]models.Quote{},
		Carriers:      []models.CarrierService{{CarrierID: 1, ServiceCode: "LTL"}},
	}, nil
}

func (f *fakeService) Tiers(ctx context.Context, req models.ShipmentRequest) (*models.TierResponse, error) {
	if _, err := f.Rate(ctx, req); err != nil {
		return nil, err
	}
	return &models.TierResponse{}, nil
}

const body = `{"account_id":"from-body","origin":{"city":"Edmonton","province":"AB","country":"CA"},` +
	`"destination":{"city":"Iqaluit","province":"NU","country":"CA"},` +
	`"packages":[{"quantity":1,"length":10,"width":10,"height":10,"weight":5}],"carrier_id":[1,20]}`

func serve(t *testing.T, h echo.HandlerFunc, payload string, token *jwt.Token) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if token != nil {
		c.Set("user", token)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestHandlerRateUsesTokenAccount(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, nil)
	token := &jwt.Token{Claims: &models.AccountClaims{AccountID: "from-token"}}

	rec := serve(t, h.Rate, body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if svc.got.AccountID != "from-token" {
		t.Errorf("account = %q; want token account", svc.got.AccountID)
	}
	if len(svc.got.CarrierIDs) != 2 {
		t.Errorf("carrier ids = %v; want [1 20]", svc.got.CarrierIDs)
	}
	var out struct {
		Carriers [][]any `json:"carriers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Carriers) != 1 || len(out.Carriers[0]) != 2 {
		t.Errorf("carriers = %v; want [[1, \"LTL\"]]", out.Carriers)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
		want    int
	}{
		{"bad json", `{"carrier_id":`, nil, http.StatusBadRequest},
		{"validation", body, &models.ValidationError{Fields: []string{"AccountID"}}, http.StatusBadRequest},
		{"nothing rated", body, models.ErrNoAvailableCarriers, http.StatusNotFound},
		{"reference data down", body, errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewHandler(&fakeService{err: tt.err}, nil)
		rec := serve(t, h.Rate, tt.payload, nil)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d; want %d", tt.name, rec.Code, tt.want)
		}
	}

	h := NewHandler(&fakeService{err: models.ErrNoAvailableCarriers}, nil)
	rec := serve(t, h.Tiers, body, nil)
	if !strings.Contains(rec.Body.String(), "no available carriers for request") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealth(t *testing.T) {
	e := echo.New()
	for _, tt := range []struct {
		db   Pinger
		want int
	}{
		{nil, http.StatusOK},
		{failingPinger{}, http.StatusServiceUnavailable},
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
		if err := NewHandler(&fakeService{}, tt.db).Health(c); err != nil {
			t.Fatalf("Health error: %v", err)
		}
		if rec.Code != tt.want {
			t.Errorf("status = %d; want %d", rec.Code, tt.want)
		}
	}
}
