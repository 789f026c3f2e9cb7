package domain

import "time"

// Admin is a back office operator allowed to manage entitlements and the catalog.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
