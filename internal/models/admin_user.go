package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AdminUser is a back-office account allowed to edit the tariff catalog.
// Authentication is email/password with Argon2id hashes.
type AdminUser struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"` // admin, viewer
	Enabled      bool           `db:"enabled" json:"enabled"`
	LastLoginAt  *time.Time     `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole checks if the user has a specific role
func (u *AdminUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValid reports whether the account may log in
func (u *AdminUser) IsValid() bool {
	return u.Enabled
}
