package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"correction_pricing/internal/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db *DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db *DB) *AdminUserRepository {
	return &AdminUserRepository{
		db: db,
	}
}

// GetByEmail retrieves an admin user by email
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var user models.AdminUser
	query := `
		SELECT id, email, password_hash, roles, enabled, last_login_at, created_at, updated_at
		FROM admin_users
		WHERE email = $1
	`

	err := r.db.conn.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminUserNotFound
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}

	return &user, nil
}

// Create creates a new admin user
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO admin_users (id, email, password_hash, roles, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.conn.QueryRowContext(
		ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Roles, user.Enabled,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	return nil
}

// UpdateLastLogin stamps a successful login
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, `UPDATE admin_users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrAdminUserNotFound
	}

	return nil
}

// Count returns the number of admin users
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM admin_users`); err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return n, nil
}
