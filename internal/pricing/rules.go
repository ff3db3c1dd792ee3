package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"correction_pricing/internal/models"
)

// ExtractRules derives the tier set from an unordered catalog.
//
// Only page-based correction tariffs with a usable price are considered. The
// cheapest one prices the second tier, the next one the open-ended third tier;
// without a second tariff the third tier is one unit cheaper than the second,
// never below 1. The first FreePages pages are always free. A catalog without
// any usable tariff yields DefaultRules.
func ExtractRules(catalog []models.TariffRecord) []Rule {
	matching := make([]models.TariffRecord, 0, len(catalog))
	for i := range catalog {
		rec := catalog[i]
		if !rec.IsPageBased() || !rec.HasValidPrice() {
			continue
		}
		matching = append(matching, rec)
	}

	if len(matching) == 0 {
		return DefaultRules()
	}

	sort.SliceStable(matching, func(i, j int) bool {
		pi, pj := *matching[i].UnitPriceMinorUnits, *matching[j].UnitPriceMinorUnits
		if pi != pj {
			return pi < pj
		}
		if matching[i].Order != matching[j].Order {
			return matching[i].Order < matching[j].Order
		}
		return matching[i].ID.String() < matching[j].ID.String()
	})

	tier2 := majorUnits(*matching[0].UnitPriceMinorUnits)

	var tier3 decimal.Decimal
	if len(matching) > 1 {
		tier3 = majorUnits(*matching[1].UnitPriceMinorUnits)
	} else {
		tier3 = decimal.Max(decimal.NewFromInt(1), tier2.Sub(decimal.NewFromInt(1)))
	}

	return []Rule{
		{ThresholdPages: FreePages, UnitPricePerPage: 0, IsFree: true},
		{ThresholdPages: Tier2Threshold, UnitPricePerPage: tier2.InexactFloat64()},
		{ThresholdPages: Unbounded, UnitPricePerPage: tier3.InexactFloat64()},
	}
}

func majorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
