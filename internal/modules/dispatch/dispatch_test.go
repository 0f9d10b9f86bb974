package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"freight-rating/internal/models"
)

// ----------------------------------------------------------------------------
// stubProvider: returns one quote per carrier it was asked about and records
// the carrier lists it received.
// ----------------------------------------------------------------------------
type stubProvider struct {
	name string
	err  error
	mu   sync.Mutex
	seen [][]int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Rate(ctx context.Context, leg models.LegRequest) ([]models.Quote, error) {
	s.mu.Lock()
	s.seen = append(s.seen, append([]int(nil), leg.Request.CarrierIDs...))
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Quote, 0, len(leg.Request.CarrierIDs))
	for _, id := range leg.Request.CarrierIDs {
		out = append(out, models.Quote{CarrierID: id, ServiceCode: "STD", Total: float64(id)})
	}
	return out, nil
}

type panicProvider struct{}

func (panicProvider) Name() string { return "panic" }
func (panicProvider) Rate(context.Context, models.LegRequest) ([]models.Quote, error) {
	panic("boom")
}

func testCatalog() *Catalog {
	return NewCatalog([]models.Carrier{
		{ID: 1, Name: "Rate Sheet A", Family: models.FamilyRateSheet, Mode: models.ModeGround},
		{ID: 2, Name: "Rate Sheet B", Family: models.FamilyRateSheet, Mode: models.ModeGround},
		{ID: 10, Name: "Courier", Family: models.FamilyCourierBroker, Mode: models.ModeCourier},
		{ID: 20, Name: "Skyline", Family: models.FamilySkyline, Mode: models.ModeAir},
		{ID: 30, Name: "Sealift", Family: models.FamilySealift, Mode: models.ModeSealift},
		{ID: 40, Name: "Named", Family: "CARRIER", Mode: models.ModeGround},
	})
}

func legFor(ids ...int) models.LegRequest {
	return models.LegRequest{
		ID:      "leg-1",
		Role:    models.LegDirect,
		Request: models.ShipmentRequest{RequestID: "req-1", CarrierIDs: ids},
	}
}

func TestPartitionIsDisjointAndTotal(t *testing.T) {
	cat := testCatalog()
	ids := []int{1, 10, 2, 20, 30, 40, 999}
	parts := cat.Partition(ids)

	seen := map[int]models.CarrierFamily{}
	var union []int
	for family, sub := range parts {
		if len(sub) == 0 {
			t.Errorf("family %s has an empty sublist", family)
		}
		for _, id := range sub {
			if prev, dup := seen[id]; dup {
				t.Errorf("carrier %d in both %s and %s", id, prev, family)
			}
			seen[id] = family
			union = append(union, id)
		}
	}
	sort.Ints(union)
	want := []int{1, 2, 10, 20, 30, 40}
	if len(union) != len(want) {
		t.Fatalf("union = %v; want %v", union, want)
	}
	for i := range want {
		if union[i] != want[i] {
			t.Fatalf("union = %v; want %v", union, want)
		}
	}
	if got := parts[models.FamilyRateSheet]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("rate sheet sublist = %v; want [1 2]", got)
	}
	if _, ok := parts[models.NamedFamily(40)]; !ok {
		t.Errorf("carrier 40 should map to its own named family")
	}
}

func TestDispatchOneInvocationPerFamily(t *testing.T) {
	sheet := &stubProvider{name: "sheet"}
	courier := &stubProvider{name: "courier"}
	reg := NewRegistry()
	reg.Register(models.FamilyRateSheet, sheet)
	reg.Register(models.FamilyCourierBroker, courier)
	r := NewRouter(testCatalog(), reg)

	quotes := r.Dispatch(context.Background(), legFor(1, 2, 10))
	if len(quotes) != 3 {
		t.Fatalf("got %d quotes; want 3", len(quotes))
	}
	if len(sheet.seen) != 1 || len(sheet.seen[0]) != 2 {
		t.Errorf("rate sheet provider saw %v; want one call with 2 carriers", sheet.seen)
	}
	if len(courier.seen) != 1 || len(courier.seen[0]) != 1 || courier.seen[0][0] != 10 {
		t.Errorf("courier provider saw %v; want [[10]]", courier.seen)
	}
}

func TestDispatchIsolatesFailingProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.FamilyRateSheet, &stubProvider{name: "sheet"})
	reg.Register(models.FamilyCourierBroker, &stubProvider{name: "courier", err: models.ErrRateUnavailable})
	reg.Register(models.FamilySkyline, &stubProvider{name: "skyline"})
	reg.Register(models.FamilySealift, panicProvider{})
	r := NewRouter(testCatalog(), reg)

	quotes := r.Dispatch(context.Background(), legFor(1, 2, 10, 20, 30))
	// rate sheet (2) + skyline (1); courier failed and sealift panicked
	if len(quotes) != 3 {
		t.Fatalf("got %d quotes; want 3", len(quotes))
	}
	for _, q := range quotes {
		if q.CarrierID == 10 || q.CarrierID == 30 {
			t.Errorf("quote from failed provider leaked: %+v", q)
		}
	}
}

func TestDispatchUnregisteredFamilyAndUnknownIDs(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.FamilyRateSheet, &stubProvider{name: "sheet"})
	r := NewRouter(testCatalog(), reg)

	quotes := r.Dispatch(context.Background(), legFor(1, 20, 12345))
	if len(quotes) != 1 || quotes[0].CarrierID != 1 {
		t.Fatalf("got %+v; want only carrier 1", quotes)
	}
	if got := r.Dispatch(context.Background(), legFor(12345)); got != nil {
		t.Errorf("unknown ids only: got %+v; want nil", got)
	}
}

func TestDispatchAllKeepsLegOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.FamilyRateSheet, &stubProvider{name: "sheet"})
	reg.Register(models.FamilySkyline, &stubProvider{name: "skyline", err: errors.New("down")})
	r := NewRouter(testCatalog(), reg)

	out := r.DispatchAll(context.Background(), []models.LegRequest{legFor(1), legFor(20), legFor(2)})
	if len(out) != 3 {
		t.Fatalf("got %d results; want 3", len(out))
	}
	if len(out[0]) != 1 || out[0][0].CarrierID != 1 {
		t.Errorf("leg 0 = %+v; want carrier 1", out[0])
	}
	if len(out[1]) != 0 {
		t.Errorf("leg 1 = %+v; want empty", out[1])
	}
	if len(out[2]) != 1 || out[2][0].CarrierID != 2 {
		t.Errorf("leg 2 = %+v; want carrier 2", out[2])
	}
}

func TestLegCarriers(t *testing.T) {
	got := testCatalog().LegCarriers()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("LegCarriers() = %v; want [1 2]", got)
	}
}
