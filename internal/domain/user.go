package domain

import (
	"fmt"
	"time"
)

// EntitlementStatus is the closed set of lifecycle states for a user's access.
type EntitlementStatus string

const (
	EntitlementPending  EntitlementStatus = "pending"
	EntitlementApproved EntitlementStatus = "approved"
	EntitlementExpired  EntitlementStatus = "expired"
	EntitlementRejected EntitlementStatus = "rejected"
)

// Valid reports whether s is one of the four known states.
func (s EntitlementStatus) Valid() bool {
	switch s {
	case EntitlementPending, EntitlementApproved, EntitlementExpired, EntitlementRejected:
		return true
	}
	return false
}

// ParseEntitlementStatus converts a stored or user supplied value into a status.
func ParseEntitlementStatus(raw string) (EntitlementStatus, error) {
	status := EntitlementStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown entitlement status %q", raw)
	}
	return status, nil
}

// User is an approved entitlement record. It is only materialized by approving
// a RegistrationRequest.
type User struct {
	ID              string
	SourceRequestID string
	Email           string
	DisplayName     string
	ProfileName     string
	PasswordHash    string
	Status          EntitlementStatus
	AccessStartDate *time.Time
	AccessEndDate   *time.Time
	CreatedAt       time.Time
	ApprovedAt      *time.Time
	ApprovedBy      string
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers never share window pointers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.AccessStartDate = cloneTime(u.AccessStartDate)
	cp.AccessEndDate = cloneTime(u.AccessEndDate)
	cp.ApprovedAt = cloneTime(u.ApprovedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
