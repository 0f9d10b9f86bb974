package aggregate

import (
	"sort"

	"freight-rating/internal/models"
)

// Select reduces a response to its cheapest, cost-median and fastest offers.
// Any pick is nil when no offer qualifies.
func Select(resp models.AggregatedResponse) models.TierResponse {
	var picks []models.TierPick
	for _, rate := range resp.Rates {
		for _, detail := range rate.Middle {
			picks = append(picks, models.TierPick{CarrierID: rate.CarrierID, RateDetail: detail})
		}
	}
	if len(picks) == 0 {
		return models.TierResponse{}
	}

	byCost := append([]models.TierPick(nil), picks...)
	sort.SliceStable(byCost, func(i, j int) bool { return byCost[i].Total < byCost[j].Total })

	// lower half keeps the middle element when the count is odd
	lower := byCost[:(len(byCost)+1)/2]

	var out models.TierResponse
	economy := byCost[0]
	standard := lower[len(lower)-1]
	out.Economy = &economy
	out.Standard = &standard

	var timed []models.TierPick
	for _, p := range picks {
		if p.TransitDays > 0 {
			timed = append(timed, p)
		}
	}
	if len(timed) > 0 {
		sort.SliceStable(timed, func(i, j int) bool {
			if timed[i].TransitDays != timed[j].TransitDays {
				return timed[i].TransitDays < timed[j].TransitDays
			}
			return timed[i].Total < timed[j].Total
		})
		express := timed[0]
		out.Express = &express
	}
	return out
}
