package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/streamhub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationSubmitted EventType = "registration_submitted"
	EventRegistrationApproved  EventType = "registration_approved"
	EventRegistrationRejected  EventType = "registration_rejected"
	EventAccessWindowUpdated   EventType = "access_window_updated"
	EventAccessRevoked         EventType = "access_revoked"
	EventAccessRestored        EventType = "access_restored"
	EventEntitlementExpired    EventType = "entitlement_expired"
	EventUserDeleted           EventType = "user_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type  domain.SubjectType `json:"type"`
	ID    string             `json:"id,omitempty"`
	Email string             `json:"email,omitempty"`
}

// ActorFrom copies the caller identity onto an event actor.
func ActorFrom(caller domain.Caller) Actor {
	return Actor{Type: caller.Subject, ID: caller.ID, Email: caller.Email}
}

// Event represents a domain event emitted by services. SubjectID is the
// registration request or user the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New builds an event with a fresh ID.
func New(eventType EventType, subjectID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// RegistrationSubmittedPayload payload.
type RegistrationSubmittedPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// RegistrationApprovedPayload payload.
type RegistrationApprovedPayload struct {
	UserID          string    `json:"user_id"`
	Email           string    `json:"email"`
	AccessStartDate time.Time `json:"access_start_date"`
	AccessEndDate   time.Time `json:"access_end_date"`
	ApprovedBy      string    `json:"approved_by"`
}

// AccessWindowUpdatedPayload payload.
type AccessWindowUpdatedPayload struct {
	OldStatus       domain.EntitlementStatus `json:"old_status"`
	NewStatus       domain.EntitlementStatus `json:"new_status"`
	AccessStartDate time.Time                `json:"access_start_date"`
	AccessEndDate   time.Time                `json:"access_end_date"`
}

// AccessRestoredPayload payload. Status is recomputed from the stored window.
type AccessRestoredPayload struct {
	Status domain.EntitlementStatus `json:"status"`
}

// EntitlementExpiredPayload payload. Source is "evaluate" or "sweep".
type EntitlementExpiredPayload struct {
	Email         string     `json:"email"`
	AccessEndDate *time.Time `json:"access_end_date,omitempty"`
	Source        string     `json:"source"`
}
