package aggregate

import (
	"time"

	"freight-rating/internal/models"

	"github.com/shopspring/decimal"
)

// Lane is the request context markup is priced against.
type Lane struct {
	AccountID       string
	OriginCity      string
	DestinationCity string
}

// Input groups the composer outputs of one request. A nil slice means the
// mode contributed nothing.
type Input struct {
	Air       []models.Itinerary
	Sealift   []models.Itinerary
	Ground    []models.Itinerary
	Interline []models.InterlineItinerary
}

// Aggregator merges itineraries from every mode into one response.
type Aggregator struct {
	markup MarkupPolicyProvider
	now    func() time.Time
}

// New returns an Aggregator. A nil markup provider leaves prices untouched.
func New(markup MarkupPolicyProvider) *Aggregator {
	return &Aggregator{markup: markup, now: time.Now}
}

// WithClock overrides the clock used to date interline offers.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	c := *a
	c.now = now
	return &c
}

// join holds the response under construction.
type join struct {
	lane     Lane
	markup   MarkupPolicyProvider
	resp     models.AggregatedResponse
	carriers map[models.CarrierService]bool
}

// Join marks up every quote, shares pickup and delivery lists by index and
// flattens each itinerary's main quotes into one merged rate per carrier.
func (a *Aggregator) Join(lane Lane, in Input) models.AggregatedResponse {
	j := &join{
		lane:   lane,
		markup: a.markup,
		resp: models.AggregatedResponse{
			Rates:         []models.MergedRate{},
			PickupRates:   [][]models.Quote{},
			DeliveryRates: [][]models.Quote{},
			Carriers:      []models.CarrierService{},
		},
		carriers: make(map[models.CarrierService]bool),
	}

	for _, it := range in.Air {
		j.addItinerary(models.ModeAir, it)
	}
	for _, it := range in.Sealift {
		j.addItinerary(models.ModeSealift, it)
	}
	for _, it := range in.Ground {
		j.addItinerary(models.ModeGround, it)
	}
	for _, it := range in.Interline {
		j.addInterline(it, a.now())
	}
	return j.resp
}

func (j *join) multiplier(carrierID int) decimal.Decimal {
	if j.markup == nil {
		return decimal.NewFromInt(1)
	}
	return j.markup.Multiplier(j.lane.AccountID, carrierID, j.lane.OriginCity, j.lane.DestinationCity)
}

// price marks q up and records it in the carriers set.
func (j *join) price(q models.Quote) models.Quote {
	q = applyMarkup(q, j.multiplier(q.CarrierID))
	j.record(q)
	return q
}

func (j *join) record(q models.Quote) {
	if q.IsPlaceholder() {
		return
	}
	key := models.CarrierService{CarrierID: q.CarrierID, ServiceCode: q.ServiceCode}
	if j.carriers[key] {
		return
	}
	j.carriers[key] = true
	j.resp.Carriers = append(j.resp.Carriers, key)
}

func (j *join) priceAll(quotes []models.Quote) []models.Quote {
	out := make([]models.Quote, len(quotes))
	for i, q := range quotes {
		out[i] = j.price(q)
	}
	return out
}

func (j *join) addItinerary(mode models.Mode, it models.Itinerary) {
	if len(it.Main) == 0 {
		return
	}
	var pickupIdx, deliveryIdx *int
	if it.Pickup != nil {
		idx := len(j.resp.PickupRates)
		j.resp.PickupRates = append(j.resp.PickupRates, j.priceAll(it.Pickup))
		pickupIdx = &idx
	}
	if it.Delivery != nil {
		idx := len(j.resp.DeliveryRates)
		j.resp.DeliveryRates = append(j.resp.DeliveryRates, j.priceAll(it.Delivery))
		deliveryIdx = &idx
	}
	midOrigin := waypointRef(it.MidOrigin)
	midDestination := waypointRef(it.MidDestination)

	byCarrier := make(map[int]int)
	for _, q := range j.priceAll(it.Main) {
		pos, ok := byCarrier[q.CarrierID]
		if !ok {
			pos = len(j.resp.Rates)
			byCarrier[q.CarrierID] = pos
			j.resp.Rates = append(j.resp.Rates, models.MergedRate{
				CarrierID:      q.CarrierID,
				CarrierName:    q.CarrierName,
				Mode:           mode,
				PickupIndex:    pickupIdx,
				DeliveryIndex:  deliveryIdx,
				MidOrigin:      midOrigin,
				MidDestination: midDestination,
			})
		}
		j.resp.Rates[pos].Middle = append(j.resp.Rates[pos].Middle, q.Detail())
	}
}

// addInterline synthesizes one offer out of the two cheapest legs. Either
// side being a placeholder drops the combination.
func (j *join) addInterline(it models.InterlineItinerary, now time.Time) {
	first := applyMarkup(it.First, j.multiplier(it.First.CarrierID))
	last := applyMarkup(it.Last, j.multiplier(it.Last.CarrierID))
	if first.IsPlaceholder() || last.IsPlaceholder() {
		return
	}
	j.record(first)
	j.record(last)

	combined := models.RateDetail{
		ServiceCode: first.ServiceCode,
		ServiceName: first.ServiceName,
		Freight:     sum(first.Freight, last.Freight),
		Surcharge:   sum(first.Surcharge, last.Surcharge),
		Tax:         sum(first.Tax, last.Tax),
		TaxPercent:  first.TaxPercent,
		Total:       sum(first.Total, last.Total),
		TransitDays: models.UnknownTransitDays,
	}
	if first.TransitDays >= 0 && last.TransitDays >= 0 {
		combined.TransitDays = first.TransitDays + last.TransitDays
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		combined.DeliveryDate = day.AddDate(0, 0, combined.TransitDays)
	}

	mid := it.Midpoint
	j.resp.Rates = append(j.resp.Rates, models.MergedRate{
		CarrierID:   first.CarrierID,
		CarrierName: first.CarrierName,
		Mode:        models.ModeInterline,
		MidOrigin:   waypointRef(&mid),
		Middle:      []models.RateDetail{combined},
	})
}

func sum(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func waypointRef(w *models.Waypoint) *models.WaypointRef {
	if w == nil {
		return nil
	}
	return &models.WaypointRef{Base: w.Base, City: w.City}
}
