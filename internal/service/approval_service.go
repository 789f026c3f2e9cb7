package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/access"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// ApproveInput carries the access window granted at approval.
type ApproveInput struct {
	AccessStartDate time.Time
	AccessEndDate   time.Time
	// ApprovedBy defaults to the caller email.
	ApprovedBy string
}

// ApprovalService implements the admin side of the entitlement lifecycle.
type ApprovalService struct {
	users      repository.UserRepository
	requests   repository.RegistrationRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// ApprovalDependencies bundles collaborators for the service.
type ApprovalDependencies struct {
	UserRepo         repository.UserRepository
	RegistrationRepo repository.RegistrationRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Clock            Clock
}

// NewApprovalService builds the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	return &ApprovalService{
		users:      deps.UserRepo,
		requests:   deps.RegistrationRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Approve promotes a pending request to an approved user. Deleting the
// request and creating the user happen atomically, so a request approved or
// rejected concurrently fails with NOT_FOUND and never yields a second user.
func (s *ApprovalService) Approve(ctx context.Context, caller domain.Caller, requestID string, input ApproveInput) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	window := access.Window{Start: input.AccessStartDate, End: input.AccessEndDate}
	if err := window.Validate(); err != nil {
		return nil, windowError(err)
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, storeError("registration request", err)
	}

	approvedBy := strings.TrimSpace(input.ApprovedBy)
	if approvedBy == "" {
		approvedBy = caller.Email
	}
	now := s.now().UTC()
	start, end := window.Start.UTC(), window.End.UTC()
	user := &domain.User{
		ID:              uuid.NewString(),
		SourceRequestID: req.ID,
		Email:           req.Email,
		DisplayName:     req.DisplayName,
		ProfileName:     req.ProfileName,
		PasswordHash:    req.PasswordHash,
		Status:          domain.EntitlementApproved,
		AccessStartDate: &start,
		AccessEndDate:   &end,
		CreatedAt:       req.CreatedAt,
		ApprovedAt:      &now,
		ApprovedBy:      approvedBy,
	}

	if err := s.requests.Promote(ctx, req.ID, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewNotFound("registration request", map[string]any{"id": requestID})
		case errors.Is(err, repository.ErrAlreadyPromoted):
			// A user already exists for a lingering request; drop the leftover.
			if delErr := s.requests.Delete(ctx, req.ID); delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
				s.logger.Warn("promoted registration request left behind",
					zap.String("request_id", req.ID), zap.Error(delErr))
			}
			return nil, apperrors.NewNotFound("registration request", map[string]any{"id": requestID})
		}
		return nil, storeError("user", err)
	}

	s.logger.Info("registration approved",
		zap.String("request_id", req.ID),
		zap.String("user_id", user.ID),
		zap.String("approved_by", approvedBy))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventRegistrationApproved,
		req.ID,
		events.ActorFrom(caller),
		now,
		events.RegistrationApprovedPayload{
			UserID:          user.ID,
			Email:           user.Email,
			AccessStartDate: start,
			AccessEndDate:   end,
			ApprovedBy:      approvedBy,
		},
	))
	return user, nil
}

// Reject discards a pending request. Rejecting a request that no longer
// exists succeeds.
func (s *ApprovalService) Reject(ctx context.Context, caller domain.Caller, requestID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	err := s.requests.Delete(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError("registration request", err)
	}

	s.logger.Info("registration rejected", zap.String("request_id", requestID))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventRegistrationRejected, requestID, events.ActorFrom(caller), s.now(), nil,
	))
	return nil
}

// UpdateAccessWindow replaces both bounds and recomputes status in one write.
// It is the only path that reactivates an expired user.
func (s *ApprovalService) UpdateAccessWindow(ctx context.Context, caller domain.Caller, userID string, start, end time.Time) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	window := access.Window{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, windowError(err)
	}

	before, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	now := s.now()
	status := window.StatusAt(now)
	updated, err := s.users.UpdateAccess(ctx, userID, window.Start.UTC(), window.End.UTC(), status)
	if err != nil {
		return nil, storeError("user", err)
	}

	s.logger.Info("access window updated",
		zap.String("user_id", userID),
		zap.String("old_status", string(before.Status)),
		zap.String("new_status", string(status)))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventAccessWindowUpdated,
		userID,
		events.ActorFrom(caller),
		now,
		events.AccessWindowUpdatedPayload{
			OldStatus:       before.Status,
			NewStatus:       status,
			AccessStartDate: window.Start.UTC(),
			AccessEndDate:   window.End.UTC(),
		},
	))
	return updated, nil
}

// RevokeAccess marks the user rejected regardless of the window.
func (s *ApprovalService) RevokeAccess(ctx context.Context, caller domain.Caller, userID string) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.users.SetStatus(ctx, userID, domain.EntitlementRejected); err != nil {
		return nil, storeError("user", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	s.logger.Info("access revoked", zap.String("user_id", userID))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventAccessRevoked, userID, events.ActorFrom(caller), s.now(), nil,
	))
	return user, nil
}

// RestoreAccess undoes a revocation. The status is recomputed from the stored
// window, so a window that ended meanwhile restores to expired. Users that are
// not revoked are returned unchanged.
func (s *ApprovalService) RestoreAccess(ctx context.Context, caller domain.Caller, userID string) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	if user.Status != domain.EntitlementRejected {
		return user, nil
	}
	if user.AccessStartDate == nil || user.AccessEndDate == nil {
		return nil, apperrors.NewValidationError("user has no access window; set one instead", map[string]any{"id": userID})
	}

	now := s.now()
	status := access.Window{Start: *user.AccessStartDate, End: *user.AccessEndDate}.StatusAt(now)
	changed, err := s.users.TransitionStatus(ctx, userID, domain.EntitlementRejected, status)
	if err != nil {
		return nil, storeError("user", err)
	}
	restored, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	if !changed {
		return restored, nil
	}

	s.logger.Info("access restored", zap.String("user_id", userID), zap.String("status", string(status)))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventAccessRestored, userID, events.ActorFrom(caller), now,
		events.AccessRestoredPayload{Status: status},
	))
	return restored, nil
}

// DeleteUser removes the entitlement record.
func (s *ApprovalService) DeleteUser(ctx context.Context, caller domain.Caller, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return storeError("user", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", userID))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventUserDeleted, userID, events.ActorFrom(caller), s.now(), nil,
	))
	return nil
}

// ListPendingRegistrations returns requests awaiting review, newest first.
func (s *ApprovalService) ListPendingRegistrations(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.RegistrationRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, storeError("registration request", err)
	}
	if reqs == nil {
		reqs = []domain.RegistrationRequest{}
	}
	return reqs, nil
}

// ListUsers returns users newest first, optionally filtered by status.
func (s *ApprovalService) ListUsers(ctx context.Context, caller domain.Caller, status *domain.EntitlementStatus, limit, offset int) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.listUsers(ctx, repository.UserFilter{Status: status, Limit: limit, Offset: offset})
}

// ListExpiredUsers returns expired users, most recently lapsed first.
func (s *ApprovalService) ListExpiredUsers(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	expired := domain.EntitlementExpired
	return s.listUsers(ctx, repository.UserFilter{Status: &expired, OrderBy: repository.OrderByAccessEnd, Limit: limit, Offset: offset})
}

func (s *ApprovalService) listUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, storeError("user", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
