package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/repository"
	"github.com/spec-kit/streamhub/internal/repository/memory"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

func TestSubmitStoresPendingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.registration.Submit(ctx, RegistrationInput{
		Email:       "  alice@example.com ",
		DisplayName: "Alice",
		ProfileName: "alice",
		Password:    "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	req, err := f.registrations.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, domain.EntitlementPending, req.Status)
	assert.Equal(t, f.clock.Now(), req.CreatedAt)
	assert.NotEqual(t, "hunter22", req.PasswordHash)
	assert.NoError(t, auth.ComparePassword(req.PasswordHash, "hunter22"))

	users, err := f.users.List(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, []events.EventType{events.EventRegistrationSubmitted}, f.recorded.types())
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]RegistrationInput{
		"blank email":    {Email: "  ", DisplayName: "A", ProfileName: "a", Password: "secret1"},
		"bad email":      {Email: "not-an-email", DisplayName: "A", ProfileName: "a", Password: "secret1"},
		"blank display":  {Email: "a@example.com", DisplayName: " ", ProfileName: "a", Password: "secret1"},
		"blank profile":  {Email: "a@example.com", DisplayName: "A", ProfileName: "", Password: "secret1"},
		"short password": {Email: "a@example.com", DisplayName: "A", ProfileName: "a", Password: "12345"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.registration.Submit(context.Background(), input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), err.Error())
		})
	}
}

func TestSubmitValidationDetailsNameFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.registration.Submit(context.Background(), RegistrationInput{Email: "x", Password: "1"})
	de := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Contains(t, de.Details, "email")
	assert.Contains(t, de.Details, "display_name")
	assert.Contains(t, de.Details, "profile_name")
	assert.Contains(t, de.Details, "password")
}

func TestSubmitRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "dup@example.com")

	_, err := f.registration.Submit(context.Background(), RegistrationInput{
		Email: "DUP@example.com", DisplayName: "D", ProfileName: "d", Password: "secret1",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	f.approved(t, "member@example.com", date(2024, 1, 1), date(2024, 12, 31))
	_, err = f.registration.Submit(context.Background(), RegistrationInput{
		Email: "member@example.com", DisplayName: "M", ProfileName: "m", Password: "secret1",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

type failingCreate struct {
	repository.RegistrationRepository
	err error
}

func (f failingCreate) Create(context.Context, *domain.RegistrationRequest) error { return f.err }

func TestSubmitStoreFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		reason string
	}{
		{"permission", repository.ErrPermissionDenied, apperrors.CodeSubmissionFailed, "permission_denied"},
		{"unavailable", repository.ErrUnavailable, apperrors.CodeStoreUnavailable, ""},
		{"other", assert.AnError, apperrors.CodeSubmissionFailed, "rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, withRegistrations(func(s *memory.Store) repository.RegistrationRepository {
				return failingCreate{RegistrationRepository: s.Registrations(), err: tc.err}
			}))
			_, err := f.registration.Submit(context.Background(), RegistrationInput{
				Email: "a@example.com", DisplayName: "A", ProfileName: "a", Password: "secret1",
			})
			de := apperrors.ToDomainError(err)
			assert.Equal(t, tc.code, de.Code)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, de.Details["reason"])
			}
		})
	}
}
