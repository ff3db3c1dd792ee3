package pricing

import (
	"github.com/shopspring/decimal"
)

// Promotional savings shown for manuscripts longer than the free tier.
const maxEstimatedSavings = 20

type deliveryBand struct {
	maxPages int
	label    string
}

var deliveryBands = []deliveryBand{
	{maxPages: 50, label: "7-8 jours"},
	{maxPages: 150, label: "10-12 jours"},
	{maxPages: 300, label: "12-15 jours"},
	{maxPages: Unbounded, label: "15-20 jours"},
}

// tierTotals is the result of walking the rules once.
type tierTotals struct {
	freePages   int
	tier2Pages  int
	tier2Amount decimal.Decimal
	tier3Pages  int
	tier3Amount decimal.Decimal
	total       decimal.Decimal
}

// walk distributes pageCount over the rules in order. Rules must end with an
// unbounded tier, otherwise pages past the last threshold are not priced.
func walk(pageCount int, rules []Rule) tierTotals {
	out := tierTotals{
		tier2Amount: decimal.Zero,
		tier3Amount: decimal.Zero,
		total:       decimal.Zero,
	}
	if pageCount <= 0 {
		return out
	}

	remaining := pageCount
	cumulative := 0
	paidTiers := 0

	for _, rule := range rules {
		inTier := min(remaining, rule.ThresholdPages-cumulative)
		if inTier <= 0 {
			break
		}

		if rule.IsFree {
			out.freePages += inTier
		} else {
			amount := decimal.NewFromInt(int64(inTier)).Mul(decimal.NewFromFloat(rule.UnitPricePerPage))
			if paidTiers == 0 {
				out.tier2Pages += inTier
				out.tier2Amount = out.tier2Amount.Add(amount)
			} else {
				out.tier3Pages += inTier
				out.tier3Amount = out.tier3Amount.Add(amount)
			}
			out.total = out.total.Add(amount)
			paidTiers++
		}

		remaining -= inTier
		cumulative = rule.ThresholdPages
	}

	return out
}

// ComputeTotal returns the price of pageCount pages under rules.
func ComputeTotal(pageCount int, rules []Rule) float64 {
	return walk(pageCount, rules).total.InexactFloat64()
}

// ComputeBreakdown returns the itemized price of pageCount pages under rules.
// Negative page counts are priced as zero pages.
func ComputeBreakdown(pageCount int, rules []Rule) Breakdown {
	if pageCount < 0 {
		pageCount = 0
	}
	totals := walk(pageCount, rules)

	average := decimal.Zero
	if pageCount > 0 {
		average = totals.total.Div(decimal.NewFromInt(int64(pageCount))).Round(2)
	}

	return Breakdown{
		PageCount:              pageCount,
		FreePages:              totals.freePages,
		Tier2Pages:             totals.tier2Pages,
		Tier2Amount:            totals.tier2Amount.InexactFloat64(),
		Tier3Pages:             totals.tier3Pages,
		Tier3Amount:            totals.tier3Amount.InexactFloat64(),
		TotalAmount:            totals.total.InexactFloat64(),
		AveragePricePerPage:    average.InexactFloat64(),
		EstimatedSavings:       estimatedSavings(pageCount),
		EstimatedDeliveryLabel: DeliveryLabel(pageCount),
	}
}

func estimatedSavings(pageCount int) float64 {
	if pageCount > FreePages {
		return maxEstimatedSavings
	}
	return float64(pageCount * 2)
}

// DeliveryLabel returns the turnaround estimate for a manuscript of pageCount pages.
func DeliveryLabel(pageCount int) string {
	for _, band := range deliveryBands {
		if pageCount <= band.maxPages {
			return band.label
		}
	}
	return deliveryBands[len(deliveryBands)-1].label
}
