package httpapi

import (
	"context"

	"correction_pricing/internal/models"
	"correction_pricing/internal/storage"

	"github.com/google/uuid"
)

// AdminStoreAdapter adapts the admin user repository to auth.AdminStore
type AdminStoreAdapter struct {
	userRepo *storage.AdminUserRepository
}

// NewAdminStoreAdapter creates a new admin store adapter
func NewAdminStoreAdapter(userRepo *storage.AdminUserRepository) *AdminStoreAdapter {
	return &AdminStoreAdapter{
		userRepo: userRepo,
	}
}

// GetAdminUserByEmail retrieves an admin user by email
func (a *AdminStoreAdapter) GetAdminUserByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return a.userRepo.GetByEmail(ctx, email)
}

// UpdateAdminUserLastLogin updates the last login timestamp for a user
func (a *AdminStoreAdapter) UpdateAdminUserLastLogin(ctx context.Context, id uuid.UUID) error {
	return a.userRepo.UpdateLastLogin(ctx, id)
}
