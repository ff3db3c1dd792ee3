package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"correction_pricing/internal/auth"
	"correction_pricing/internal/config"
	"correction_pricing/internal/models"
	"correction_pricing/internal/storage"
	"correction_pricing/internal/utils"

	"github.com/google/uuid"
)

func main() {
	fmt.Println("Correction Pricing - Bootstrap Admin Initialization")
	fmt.Println(strings.Repeat("=", 52))

	// Load configuration (primarily for database connection)
	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		fail("DATABASE_URL must be set")
	}

	// Get bootstrap credentials from environment
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_BOOTSTRAP_EMAIL")))
	password := os.Getenv("ADMIN_BOOTSTRAP_PASSWORD")

	if email == "" || password == "" {
		fail("ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set")
	}
	if !isValidEmail(email) {
		fail("Invalid email format: %s", email)
	}
	if len(password) < 8 {
		fail("Password must be at least 8 characters long")
	}

	fmt.Println("Connecting to database...")
	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		QueryTimeout:    cfg.Database.QueryTimeout,
	})
	if err != nil {
		fail("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := db.NewAdminUserRepository()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Bootstrap only runs against an empty admin table
	existing, err := repo.Count(ctx)
	if err != nil {
		fail("Failed to check existing users: %v", err)
	}
	if existing > 0 {
		fmt.Printf("INFO: Found %d existing admin user(s). Bootstrap not needed.\n", existing)
		fmt.Println("Exiting successfully (no action taken)")
		return
	}

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		fmt.Printf("INFO: Admin user with email %s already exists\n", email)
		return
	} else if !errors.Is(err, storage.ErrAdminUserNotFound) {
		fail("Failed to check for existing user: %v", err)
	}

	fmt.Println("Hashing password using Argon2...")
	passwordHash, err := utils.HashPasswordArgon2(password)
	if err != nil {
		fail("Failed to hash password: %v", err)
	}

	adminUser := &models.AdminUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{auth.RoleAdmin.String()},
		Enabled:      true,
	}
	if err := repo.Create(ctx, adminUser); err != nil {
		fail("Failed to create admin user: %v", err)
	}

	fmt.Println()
	fmt.Println("SUCCESS: Bootstrap admin user created")
	fmt.Printf("Email: %s\n", adminUser.Email)
	fmt.Printf("ID: %s\n", adminUser.ID)
	fmt.Printf("Roles: %v\n", adminUser.Roles)
	fmt.Printf("Created: %s\n", adminUser.CreatedAt.Format(time.RFC3339))
	fmt.Println("\nLog in with POST /admin/auth/login, then remove ADMIN_BOOTSTRAP_EMAIL and")
	fmt.Println("ADMIN_BOOTSTRAP_PASSWORD from the environment.")
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}

// isValidEmail performs a basic email validation: exactly one @, not at either end
func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at == strings.LastIndex(email, "@") && at < len(email)-1
}
