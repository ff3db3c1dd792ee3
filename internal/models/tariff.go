package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

//
// Tariff (tariffs table)
//

// TariffRecord is one priced service offering in the catalog
// (e.g. "Correction Standard").
type TariffRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`

	// Price in the smallest currency unit (cents). Nil marks a malformed record.
	UnitPriceMinorUnits *int64 `db:"unit_price_minor_units" json:"unit_price_minor_units"`

	// Display string, never parsed
	FormattedPrice string `db:"formatted_price" json:"formatted_price"`

	ServiceType       string `db:"service_type" json:"service_type"`
	EstimatedDuration string `db:"estimated_duration" json:"estimated_duration"`
	Active            bool   `db:"active" json:"active"`
	Order             int    `db:"sort_order" json:"order"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PageBasedVocabulary lists the substrings that identify page-priced correction services.
var PageBasedVocabulary = []string{"correction", "page"}

// IsPageBased reports whether the service type or name identifies a
// page-based correction service (case-insensitive).
func (t *TariffRecord) IsPageBased() bool {
	serviceType := strings.ToLower(t.ServiceType)
	name := strings.ToLower(t.Name)
	for _, word := range PageBasedVocabulary {
		if strings.Contains(serviceType, word) || strings.Contains(name, word) {
			return true
		}
	}
	return false
}

// HasValidPrice reports whether the record carries a usable unit price.
func (t *TariffRecord) HasValidPrice() bool {
	return t.UnitPriceMinorUnits != nil && *t.UnitPriceMinorUnits >= 0
}

// CloneTariffs returns a copy of the slice so callers cannot mutate shared catalog state.
// A nil input stays nil; an empty input stays empty.
func CloneTariffs(in []TariffRecord) []TariffRecord {
	if in == nil {
		return nil
	}
	out := make([]TariffRecord, len(in))
	for i, rec := range in {
		out[i] = rec
		if rec.UnitPriceMinorUnits != nil {
			price := *rec.UnitPriceMinorUnits
			out[i].UnitPriceMinorUnits = &price
		}
	}
	return out
}

// PriceMinor is a helper for building records with a unit price.
func PriceMinor(v int64) *int64 {
	return &v
}
