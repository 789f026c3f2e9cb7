package domain

import "time"

// RegistrationStatus is fixed to pending for the lifetime of a request.
const RegistrationStatus = EntitlementPending

// RegistrationRequest is a visitor's signup awaiting an admin decision.
type RegistrationRequest struct {
	ID           string
	Email        string
	DisplayName  string
	ProfileName  string
	PasswordHash string
	Status       EntitlementStatus
	CreatedAt    time.Time
}
