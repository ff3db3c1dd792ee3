// Package catalog provides the places a tariff catalog can be fetched from.
// Every source returns only active tariffs.
package catalog

import (
	"context"
	"errors"

	"correction_pricing/internal/models"
)

// ErrUnexpectedStatus is returned when a remote catalog answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected catalog status")

// Source fetches the public tariff catalog.
type Source interface {
	FetchCatalog(ctx context.Context) ([]models.TariffRecord, error)
}

// document is the wire shape shared by catalog files and GET /api/tariffs.
type document struct {
	Tariffs []models.TariffRecord `json:"tariffs"`
}

func activeOnly(in []models.TariffRecord) []models.TariffRecord {
	out := make([]models.TariffRecord, 0, len(in))
	for _, rec := range in {
		if rec.Active {
			out = append(out, rec)
		}
	}
	return out
}
