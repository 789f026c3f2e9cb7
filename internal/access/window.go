package access

import (
	"errors"
	"time"

	"github.com/spec-kit/streamhub/internal/domain"
)

// ErrInvalidWindow is returned when a window starts after it ends.
var ErrInvalidWindow = errors.New("access window start is after end")

// ErrIncompleteWindow is returned when an admin supplied window lacks a bound.
var ErrIncompleteWindow = errors.New("access window requires start and end")

// Window is a closed [Start, End] entitlement interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate checks both bounds are present and ordered.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrIncompleteWindow
	}
	if w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// StatusAt is the status an admin edit must persist for this window: expired
// once now is past End, otherwise approved.
func (w Window) StatusAt(now time.Time) domain.EntitlementStatus {
	if now.After(w.End) {
		return domain.EntitlementExpired
	}
	return domain.EntitlementApproved
}
