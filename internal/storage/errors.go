package storage

import "errors"

var (
	// ErrTariffNotFound is returned when a tariff is not found
	ErrTariffNotFound = errors.New("tariff not found")

	// ErrAdminUserNotFound is returned when an admin user is not found
	ErrAdminUserNotFound = errors.New("admin user not found")
)
