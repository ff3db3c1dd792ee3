package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"correction_pricing/internal/config"
	"correction_pricing/internal/logging"
	"correction_pricing/internal/models"
	"correction_pricing/internal/utils"
)

const (
	// AdminAuthTypeUser marks tokens issued for an email/password login
	AdminAuthTypeUser = "user"

	issuer = "correction-pricing"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
)

// AdminStore is what the login flow needs from persistence
type AdminStore interface {
	GetAdminUserByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	UpdateAdminUserLastLogin(ctx context.Context, id uuid.UUID) error
}

// AdminClaims are embedded in admin JWTs
type AdminClaims struct {
	AdminID  string   `json:"admin_id"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	AuthType string   `json:"auth_type"`
	jwt.RegisteredClaims
}

// GenerateAdminJWTWithPassword checks the credentials and issues a signed token.
// It returns the token and its expiry as a unix timestamp.
func GenerateAdminJWTWithPassword(ctx context.Context, email, password string, store AdminStore, cfg *config.Config) (string, int64, error) {
	user, err := store.GetAdminUserByEmail(ctx, email)
	if err != nil {
		// Same answer for unknown users and wrong passwords
		return "", 0, ErrInvalidCredentials
	}

	ok, err := utils.VerifyPasswordArgon2(password, user.PasswordHash)
	if err != nil {
		return "", 0, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", 0, ErrInvalidCredentials
	}
	if !user.IsValid() {
		return "", 0, ErrAccountDisabled
	}

	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := AdminClaims{
		AdminID:  user.ID.String(),
		Email:    user.Email,
		Roles:    append([]string(nil), user.Roles...),
		AuthType: AdminAuthTypeUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.JWTSecret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := store.UpdateAdminUserLastLogin(ctx, user.ID); err != nil {
		logging.Warningf("Failed to record login for %s: %v", user.Email, err)
	}

	return signed, expiresAt.Unix(), nil
}

// ValidateAdminJWT parses and verifies an admin token
func ValidateAdminJWT(tokenString string, cfg *config.Config) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
