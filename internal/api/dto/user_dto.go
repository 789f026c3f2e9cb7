package dto

import "time"

// UserRegisterRequest payload for new visitors.
type UserRegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ProfileName string `json:"profile_name"`
	Password    string `json:"password"`
}

// LoginRequest payload for viewer and admin login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegistrationAccepted is returned once a signup is queued for review.
type RegistrationAccepted struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// AdminResponse describes an administrator.
type AdminResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
