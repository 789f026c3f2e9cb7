package service

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// MinPasswordLength is the shortest accepted signup password.
const MinPasswordLength = 6

// RegistrationInput is the visitor signup form.
type RegistrationInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ProfileName string `json:"profile_name"`
	Password    string `json:"password"`
}

// Normalize trims every field.
func (in RegistrationInput) Normalize() RegistrationInput {
	return RegistrationInput{
		Email:       strings.TrimSpace(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		ProfileName: strings.TrimSpace(in.ProfileName),
		Password:    in.Password,
	}
}

// Validate checks the normalized input.
func (in RegistrationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 320), is.Email),
		validation.Field(&in.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.ProfileName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLength, 72)),
	)
}

// RegistrationService records signup requests for admin review.
type RegistrationService struct {
	users      repository.UserRepository
	requests   repository.RegistrationRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        Clock
}

// RegistrationDependencies bundles collaborators for the service.
type RegistrationDependencies struct {
	UserRepo         repository.UserRepository
	RegistrationRepo repository.RegistrationRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	BcryptCost       int
	Clock            Clock
}

// NewRegistrationService builds the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	return &RegistrationService{
		users:      deps.UserRepo,
		requests:   deps.RegistrationRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		bcryptCost: deps.BcryptCost,
		now:        clockOrNow(deps.Clock),
	}
}

// Submit validates and stores a pending registration request and returns its ID.
func (s *RegistrationService) Submit(ctx context.Context, input RegistrationInput) (string, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return "", validationFailed(err)
	}

	if err := s.ensureEmailFree(ctx, input.Email); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	req := &domain.RegistrationRequest{
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		ProfileName:  input.ProfileName,
		PasswordHash: hash,
		Status:       domain.RegistrationStatus,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return "", submitError(err)
	}

	s.logger.Info("registration submitted", zap.String("request_id", req.ID))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventRegistrationSubmitted,
		req.ID,
		events.Actor{Email: req.Email},
		req.CreatedAt,
		events.RegistrationSubmittedPayload{Email: req.Email, DisplayName: req.DisplayName},
	))
	return req.ID, nil
}

func (s *RegistrationService) ensureEmailFree(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return storeError("user", repository.ErrEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return storeError("user", err)
	}
	if _, err := s.requests.GetByEmail(ctx, email); err == nil {
		return storeError("registration request", repository.ErrEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return storeError("registration request", err)
	}
	return nil
}

// submitError maps write failures; anything the store refused that is not a
// known condition is reported as a rejected submission.
func submitError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, repository.ErrPermissionDenied),
		errors.Is(err, repository.ErrUnavailable):
		return storeError("registration request", err)
	default:
		return apperrors.NewSubmissionFailed("rejected", err)
	}
}
