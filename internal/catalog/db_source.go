package catalog

import (
	"context"

	"correction_pricing/internal/models"
)

// TariffLister is the part of storage.TariffRepository the DB source needs.
type TariffLister interface {
	ListActive(ctx context.Context) ([]models.TariffRecord, error)
}

// DBSource reads the catalog straight from the tariffs table.
type DBSource struct {
	repo TariffLister
}

// NewDBSource creates a source backed by the tariffs repository.
func NewDBSource(repo TariffLister) *DBSource {
	return &DBSource{repo: repo}
}

// FetchCatalog returns the active tariffs.
func (s *DBSource) FetchCatalog(ctx context.Context) ([]models.TariffRecord, error) {
	return s.repo.ListActive(ctx)
}
