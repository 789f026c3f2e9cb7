// Package service holds the entitlement workflows. Every operation that acts
// on behalf of someone takes an explicit domain.Caller.
package service

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/access"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// Clock returns the current instant. Tests inject fixed clocks.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func requireAdmin(caller domain.Caller) error {
	if !caller.Authenticated() {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !caller.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// requireMaintainer admits admins and scheduled system jobs.
func requireMaintainer(caller domain.Caller) error {
	if caller.IsSystem() {
		return nil
	}
	return requireAdmin(caller)
}

// storeError translates repository sentinels into API errors.
func storeError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrAlreadyPromoted):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrPermissionDenied):
		return apperrors.NewSubmissionFailed("permission_denied", err)
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.NewStoreUnavailable(err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func windowError(err error) error {
	if errors.Is(err, access.ErrInvalidWindow) {
		return apperrors.NewInvalidWindow("access_start_date must not be after access_end_date")
	}
	return apperrors.NewValidationError(err.Error(), map[string]any{
		"access_start_date": "required",
		"access_end_date":   "required",
	})
}

func validationFailed(err error) error {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		return apperrors.NewValidationError("invalid input", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}

// publish never fails the calling operation; broker and handler errors are
// logged.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}
