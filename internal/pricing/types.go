// Package pricing turns the tariff catalog into page-count tiers and prices manuscripts against them.
package pricing

import (
	"encoding/json"
	"math"
)

// Unbounded marks the threshold of the last tier.
const Unbounded = math.MaxInt

const (
	// FreePages is the width of the free tier. Fixed business rule, not derived from the catalog.
	FreePages = 10

	// Tier2Threshold is the cumulative page count at which the second tier ends.
	Tier2Threshold = 300
)

// Rule is one pricing tier. Rules are ordered by strictly increasing ThresholdPages;
// at most one is free and it comes first, exactly one is unbounded and it comes last.
type Rule struct {
	ThresholdPages   int     `json:"threshold_pages"`
	UnitPricePerPage float64 `json:"unit_price_per_page"`
	IsFree           bool    `json:"is_free"`
}

// IsUnbounded reports whether the rule is the open-ended last tier.
func (r Rule) IsUnbounded() bool {
	return r.ThresholdPages == Unbounded
}

// MarshalJSON encodes the unbounded threshold as null.
func (r Rule) MarshalJSON() ([]byte, error) {
	type wire struct {
		ThresholdPages   *int    `json:"threshold_pages"`
		UnitPricePerPage float64 `json:"unit_price_per_page"`
		IsFree           bool    `json:"is_free"`
	}
	out := wire{UnitPricePerPage: r.UnitPricePerPage, IsFree: r.IsFree}
	if !r.IsUnbounded() {
		threshold := r.ThresholdPages
		out.ThresholdPages = &threshold
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a null threshold as Unbounded.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var in struct {
		ThresholdPages   *int    `json:"threshold_pages"`
		UnitPricePerPage float64 `json:"unit_price_per_page"`
		IsFree           bool    `json:"is_free"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.ThresholdPages = Unbounded
	if in.ThresholdPages != nil {
		r.ThresholdPages = *in.ThresholdPages
	}
	r.UnitPricePerPage = in.UnitPricePerPage
	r.IsFree = in.IsFree
	return nil
}

// DefaultRules returns the rule set used when the catalog has no page-based tariffs
// or cannot be loaded: 10 free pages, 2 per page up to 300, then 1 per page.
func DefaultRules() []Rule {
	return []Rule{
		{ThresholdPages: FreePages, UnitPricePerPage: 0, IsFree: true},
		{ThresholdPages: Tier2Threshold, UnitPricePerPage: 2},
		{ThresholdPages: Unbounded, UnitPricePerPage: 1},
	}
}

// Breakdown is the itemized price of a manuscript. Derived on demand, never persisted.
type Breakdown struct {
	PageCount              int     `json:"page_count"`
	FreePages              int     `json:"free_pages"`
	Tier2Pages             int     `json:"tier2_pages"`
	Tier2Amount            float64 `json:"tier2_amount"`
	Tier3Pages             int     `json:"tier3_pages"`
	Tier3Amount            float64 `json:"tier3_amount"`
	TotalAmount            float64 `json:"total_amount"`
	AveragePricePerPage    float64 `json:"average_price_per_page"`
	EstimatedSavings       float64 `json:"estimated_savings"`
	EstimatedDeliveryLabel string  `json:"estimated_delivery_label"`
}
