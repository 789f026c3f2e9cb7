package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorPassesThroughWrapped(t *testing.T) {
	err := fmt.Errorf("approve: %w", NewNotFound("registration request", nil))

	de := ToDomainError(err)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")

	de := ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.ErrorIs(t, de, cause)
	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorIsComparesCode(t *testing.T) {
	assert.ErrorIs(t, NewInvalidWindow("start after end"), NewInvalidWindow("other message"))
	assert.NotErrorIs(t, NewInvalidWindow("x"), NewNotFound("user", nil))
	assert.True(t, HasCode(fmt.Errorf("wrapped: %w", NewForbidden("no")), CodeForbidden))
}

func TestSubmissionFailedCarriesReason(t *testing.T) {
	de := ToDomainError(NewSubmissionFailed("permission_denied", errors.New("42501")))
	assert.Equal(t, http.StatusBadGateway, de.HTTPStatus)
	assert.Equal(t, "permission_denied", de.Details["reason"])
}
