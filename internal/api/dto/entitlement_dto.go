package dto

import (
	"time"

	"github.com/spec-kit/streamhub/internal/access"
	"github.com/spec-kit/streamhub/internal/domain"
)

// AccessWindowRequest carries an admin chosen window. Dates accept RFC 3339
// timestamps or plain YYYY-MM-DD days.
type AccessWindowRequest struct {
	AccessStartDate string `json:"access_start_date"`
	AccessEndDate   string `json:"access_end_date"`
}

// ApproveRequest payload for POST /admin/registrations/:id/approve.
type ApproveRequest struct {
	AccessWindowRequest
	ApprovedBy string `json:"approved_by"`
}

// RegistrationResponse describes a pending request. The password hash is
// never serialized.
type RegistrationResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ProfileName string    `json:"profile_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserResponse describes an entitlement record.
type UserResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name"`
	ProfileName     string     `json:"profile_name"`
	Status          string     `json:"status"`
	AccessStartDate *time.Time `json:"access_start_date"`
	AccessEndDate   *time.Time `json:"access_end_date"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DecisionResponse is the evaluator verdict.
type DecisionResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Granted bool   `json:"granted"`
}

// MeResponse is the viewer's own entitlement.
type MeResponse struct {
	User   UserResponse     `json:"user"`
	Access DecisionResponse `json:"access"`
}

// SweepResponse summarizes a maintenance run.
type SweepResponse struct {
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
}

// NewRegistrationResponse maps the domain request.
func NewRegistrationResponse(req *domain.RegistrationRequest) RegistrationResponse {
	return RegistrationResponse{
		ID:          req.ID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ProfileName: req.ProfileName,
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt,
	}
}

// NewUserResponse maps the domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		DisplayName:     user.DisplayName,
		ProfileName:     user.ProfileName,
		Status:          string(user.Status),
		AccessStartDate: user.AccessStartDate,
		AccessEndDate:   user.AccessEndDate,
		CreatedAt:       user.CreatedAt,
		ApprovedAt:      user.ApprovedAt,
		ApprovedBy:      user.ApprovedBy,
		UpdatedAt:       user.UpdatedAt,
	}
}

// NewDecisionResponse maps an evaluator decision.
func NewDecisionResponse(d access.Decision) DecisionResponse {
	return DecisionResponse{Outcome: string(d.Outcome), Reason: string(d.Reason), Granted: d.Granted()}
}
