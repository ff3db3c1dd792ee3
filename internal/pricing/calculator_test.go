package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"correction_pricing/internal/models"
)

func TestComputeBreakdown_DefaultRules(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		want  Breakdown
	}{
		{
			name:  "zero pages",
			pages: 0,
			want: Breakdown{
				EstimatedDeliveryLabel: "7-8 jours",
			},
		},
		{
			name:  "inside free tier",
			pages: 7,
			want: Breakdown{
				PageCount:              7,
				FreePages:              7,
				EstimatedSavings:       14,
				EstimatedDeliveryLabel: "7-8 jours",
			},
		},
		{
			name:  "150 pages",
			pages: 150,
			want: Breakdown{
				PageCount:              150,
				FreePages:              10,
				Tier2Pages:             140,
				Tier2Amount:            280,
				TotalAmount:            280,
				AveragePricePerPage:    1.87,
				EstimatedSavings:       20,
				EstimatedDeliveryLabel: "10-12 jours",
			},
		},
		{
			name:  "500 pages",
			pages: 500,
			want: Breakdown{
				PageCount:              500,
				FreePages:              10,
				Tier2Pages:             290,
				Tier2Amount:            580,
				Tier3Pages:             200,
				Tier3Amount:            200,
				TotalAmount:            780,
				AveragePricePerPage:    1.56,
				EstimatedSavings:       20,
				EstimatedDeliveryLabel: "15-20 jours",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBreakdown(tt.pages, DefaultRules())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.TotalAmount, ComputeTotal(tt.pages, DefaultRules()))
		})
	}
}

func TestComputeTotal_FreeTier(t *testing.T) {
	for pages := 0; pages <= FreePages; pages++ {
		assert.Equal(t, 0.0, ComputeTotal(pages, DefaultRules()), "pages=%d", pages)
	}
}

func TestComputeTotal_NonNegativeAndMonotonic(t *testing.T) {
	ruleSets := map[string][]Rule{
		"default": DefaultRules(),
		"single tariff": ExtractRules([]models.TariffRecord{
			tariff("Correction", "correction", models.PriceMinor(150)),
		}),
		"two tariffs": ExtractRules([]models.TariffRecord{
			tariff("Correction Premium", "correction", models.PriceMinor(375)),
			tariff("Correction Standard", "correction", models.PriceMinor(199)),
		}),
	}

	for name, rules := range ruleSets {
		t.Run(name, func(t *testing.T) {
			previous := 0.0
			for pages := 0; pages <= 1200; pages++ {
				total := ComputeTotal(pages, rules)
				assert.GreaterOrEqual(t, total, 0.0)
				if total < previous {
					t.Fatalf("total decreased at %d pages: %v < %v", pages, total, previous)
				}
				previous = total
			}
		})
	}
}

func TestComputeBreakdown_NegativePages(t *testing.T) {
	got := ComputeBreakdown(-5, DefaultRules())
	assert.Equal(t, 0, got.PageCount)
	assert.Equal(t, 0.0, got.TotalAmount)
	assert.Equal(t, 0.0, got.EstimatedSavings)
}

func TestComputeBreakdown_ExtractedRules(t *testing.T) {
	rules := ExtractRules([]models.TariffRecord{
		tariff("Correction Standard", "correction", models.PriceMinor(150)),
	})

	got := ComputeBreakdown(400, rules)
	assert.Equal(t, 10, got.FreePages)
	assert.Equal(t, 290, got.Tier2Pages)
	assert.Equal(t, 435.0, got.Tier2Amount)
	assert.Equal(t, 100, got.Tier3Pages)
	assert.Equal(t, 100.0, got.Tier3Amount)
	assert.Equal(t, 535.0, got.TotalAmount)
}

func TestComputeTotal_TruncatesWithoutUnboundedTier(t *testing.T) {
	rules := []Rule{
		{ThresholdPages: 10, IsFree: true},
		{ThresholdPages: 20, UnitPricePerPage: 1},
	}
	assert.Equal(t, 10.0, ComputeTotal(100, rules))
}

func TestDeliveryLabel(t *testing.T) {
	tests := []struct {
		pages int
		want  string
	}{
		{pages: 1, want: "7-8 jours"},
		{pages: 50, want: "7-8 jours"},
		{pages: 51, want: "10-12 jours"},
		{pages: 150, want: "10-12 jours"},
		{pages: 151, want: "12-15 jours"},
		{pages: 300, want: "12-15 jours"},
		{pages: 301, want: "15-20 jours"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeliveryLabel(tt.pages), "pages=%d", tt.pages)
	}
}
