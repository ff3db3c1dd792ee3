package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"correction_pricing/internal/models"
)

const tariffColumns = `id, name, description, unit_price_minor_units, formatted_price,
		service_type, estimated_duration, active, sort_order, created_at, updated_at`

// TariffRepository handles tariff catalog database operations
type TariffRepository struct {
	db *DB
}

// NewTariffRepository creates a new tariff repository
func NewTariffRepository(db *DB) *TariffRepository {
	return &TariffRepository{
		db: db,
	}
}

// ListActive returns the public catalog: active tariffs in display order
func (r *TariffRepository) ListActive(ctx context.Context) ([]models.TariffRecord, error) {
	return r.list(ctx, true)
}

// List returns every tariff, active or not
func (r *TariffRepository) List(ctx context.Context) ([]models.TariffRecord, error) {
	return r.list(ctx, false)
}

func (r *TariffRepository) list(ctx context.Context, activeOnly bool) ([]models.TariffRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + tariffColumns + ` FROM tariffs`
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY sort_order, name"

	tariffs := []models.TariffRecord{}
	if err := r.db.conn.SelectContext(ctx, &tariffs, query); err != nil {
		return nil, fmt.Errorf("failed to list tariffs: %w", err)
	}

	return tariffs, nil
}

// GetByID retrieves a tariff by ID
func (r *TariffRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TariffRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var tariff models.TariffRecord
	query := `SELECT ` + tariffColumns + ` FROM tariffs WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &tariff, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTariffNotFound
		}
		return nil, fmt.Errorf("failed to get tariff: %w", err)
	}

	return &tariff, nil
}

// Create inserts a new tariff
func (r *TariffRepository) Create(ctx context.Context, tariff *models.TariffRecord) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO tariffs (id, name, description, unit_price_minor_units, formatted_price,
			service_type, estimated_duration, active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if tariff.ID == uuid.Nil {
		tariff.ID = uuid.New()
	}

	err := r.db.conn.QueryRowContext(
		ctx, query,
		tariff.ID, tariff.Name, tariff.Description, tariff.UnitPriceMinorUnits, tariff.FormattedPrice,
		tariff.ServiceType, tariff.EstimatedDuration, tariff.Active, tariff.Order,
	).Scan(&tariff.CreatedAt, &tariff.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tariff: %w", err)
	}

	return nil
}

// Update replaces an existing tariff
func (r *TariffRepository) Update(ctx context.Context, tariff *models.TariffRecord) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tariffs
		SET name = $2, description = $3, unit_price_minor_units = $4, formatted_price = $5,
			service_type = $6, estimated_duration = $7, active = $8, sort_order = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := r.db.conn.QueryRowContext(
		ctx, query,
		tariff.ID, tariff.Name, tariff.Description, tariff.UnitPriceMinorUnits, tariff.FormattedPrice,
		tariff.ServiceType, tariff.EstimatedDuration, tariff.Active, tariff.Order,
	).Scan(&tariff.CreatedAt, &tariff.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTariffNotFound
		}
		return fmt.Errorf("failed to update tariff: %w", err)
	}

	return nil
}

// Delete removes a tariff by ID
func (r *TariffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM tariffs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tariff: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrTariffNotFound
	}

	return nil
}
