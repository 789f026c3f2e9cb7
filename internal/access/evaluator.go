// Package access decides whether an entitlement currently grants playback.
//
// Evaluate is pure: it never touches the store. When a decision implies a
// status change (lazy expiry) it is returned as a Transition for the caller to
// persist as a separate step.
package access

import (
	"time"

	"github.com/spec-kit/streamhub/internal/domain"
)

// Outcome is the coarse result of an access check.
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomePending  Outcome = "pending"
	OutcomeExpired  Outcome = "expired"
	OutcomeRejected Outcome = "rejected"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonPending    Reason = "pending"
	ReasonExpired    Reason = "expired"
	ReasonInactive   Reason = "inactive"
	ReasonNotStarted Reason = "not_started"
)

// Decision is the evaluator verdict for a single user at a single instant.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Granted reports whether playback is allowed.
func (d Decision) Granted() bool {
	return d.Outcome == OutcomeGranted
}

// Transition is a status write implied by a decision.
type Transition struct {
	UserID string
	From   domain.EntitlementStatus
	To     domain.EntitlementStatus
}

// Evaluate checks status first, then the access window, short-circuiting on
// the first denial. A lapsed but still approved record yields an expiry
// transition.
func Evaluate(user *domain.User, now time.Time) (Decision, *Transition) {
	if user == nil {
		return Decision{Outcome: OutcomeRejected, Reason: ReasonInactive}, nil
	}

	switch user.Status {
	case domain.EntitlementApproved:
	case domain.EntitlementPending:
		return Decision{Outcome: OutcomePending, Reason: ReasonPending}, nil
	case domain.EntitlementExpired:
		return Decision{Outcome: OutcomeExpired, Reason: ReasonExpired}, nil
	default:
		return Decision{Outcome: OutcomeRejected, Reason: ReasonInactive}, nil
	}

	if user.AccessStartDate != nil && now.Before(*user.AccessStartDate) {
		return Decision{Outcome: OutcomeRejected, Reason: ReasonNotStarted}, nil
	}

	if user.AccessEndDate != nil && now.After(*user.AccessEndDate) {
		return Decision{Outcome: OutcomeExpired, Reason: ReasonExpired}, &Transition{
			UserID: user.ID,
			From:   domain.EntitlementApproved,
			To:     domain.EntitlementExpired,
		}
	}

	return Decision{Outcome: OutcomeGranted}, nil
}
