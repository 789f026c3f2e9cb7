package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/streamhub/internal/access"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/repository"
	"github.com/spec-kit/streamhub/internal/repository/memory"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

func TestApprovePromotesRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.submit(t, "alice@example.com")
	req, err := f.registrations.GetByID(ctx, requestID)
	require.NoError(t, err)

	user, err := f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 12, 31),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EntitlementApproved, user.Status)
	assert.Equal(t, requestID, user.SourceRequestID)
	assert.Equal(t, req.Email, user.Email)
	assert.Equal(t, req.DisplayName, user.DisplayName)
	assert.Equal(t, req.PasswordHash, user.PasswordHash)
	assert.Equal(t, req.CreatedAt, user.CreatedAt)
	assert.Equal(t, "admin@example.com", user.ApprovedBy)
	require.NotNil(t, user.ApprovedAt)
	assert.Equal(t, f.clock.Now(), *user.ApprovedAt)

	_, err = f.registrations.GetByID(ctx, requestID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored := f.reload(t, user.ID)
	assert.Equal(t, date(2024, 12, 31), *stored.AccessEndDate)
	assert.Contains(t, f.recorded.types(), events.EventRegistrationApproved)
}

func TestApproveUsesExplicitApprover(t *testing.T) {
	f := newFixture(t)
	user, err := f.approval.Approve(context.Background(), adminCaller, f.submit(t, "b@example.com"), ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 2, 1),
		ApprovedBy:      "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.ApprovedBy)
}

func TestApproveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.submit(t, "c@example.com")

	_, err := f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{
		AccessStartDate: date(2024, 12, 31),
		AccessEndDate:   date(2024, 1, 1),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidWindow))

	_, err = f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{AccessEndDate: date(2024, 1, 1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.approval.Approve(ctx, adminCaller, "missing", ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 2, 1),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	// the request is untouched by failed attempts
	_, err = f.registrations.GetByID(ctx, requestID)
	assert.NoError(t, err)
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := domain.Caller{Subject: domain.SubjectTypeUser, ID: "u1", Email: "v@example.com"}
	window := ApproveInput{AccessStartDate: date(2024, 1, 1), AccessEndDate: date(2024, 2, 1)}

	_, err := f.approval.Approve(ctx, domain.Caller{}, "r", window)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
	_, err = f.approval.Approve(ctx, viewer, "r", window)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.approval.Approve(ctx, system, "r", window)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	assert.True(t, apperrors.HasCode(f.approval.Reject(ctx, viewer, "r"), apperrors.CodeForbidden))
	_, err = f.approval.UpdateAccessWindow(ctx, viewer, "u", date(2024, 1, 1), date(2024, 2, 1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.approval.RevokeAccess(ctx, domain.Caller{}, "u")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
	assert.True(t, apperrors.HasCode(f.approval.DeleteUser(ctx, viewer, "u"), apperrors.CodeForbidden))
	_, err = f.approval.ListUsers(ctx, viewer, nil, 0, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestApproveWithLapsedWindowEvaluatesExpired(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(date(2025, 3, 1))
	user := f.approved(t, "late@example.com", date(2024, 1, 1), date(2024, 12, 31))
	assert.Equal(t, domain.EntitlementApproved, user.Status)

	decision := f.access.Evaluate(context.Background(), user)
	assert.Equal(t, access.OutcomeExpired, decision.Outcome)
	assert.Equal(t, domain.EntitlementExpired, f.reload(t, user.ID).Status)
}

func TestConcurrentApprovesPromoteOnce(t *testing.T) {
	f := newFixture(t)
	requestID := f.submit(t, "race@example.com")
	window := ApproveInput{AccessStartDate: date(2024, 1, 1), AccessEndDate: date(2024, 12, 31)}

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		notFound  atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.approval.Approve(context.Background(), adminCaller, requestID, window)
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperrors.HasCode(err, apperrors.CodeNotFound):
				notFound.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), notFound.Load())

	users, err := f.users.List(context.Background(), repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	_, err = f.registrations.GetByID(context.Background(), requestID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// rejectAfterRead rejects the request as soon as an approval has read it.
type rejectAfterRead struct {
	repository.RegistrationRepository
	reject func(id string)
	once   sync.Once
}

func (r *rejectAfterRead) GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	req, err := r.RegistrationRepository.GetByID(ctx, id)
	if err == nil {
		r.once.Do(func() { r.reject(id) })
	}
	return req, err
}

func TestApproveLosesToConcurrentReject(t *testing.T) {
	var wrapped *rejectAfterRead
	f := newFixture(t, withRegistrations(func(s *memory.Store) repository.RegistrationRepository {
		wrapped = &rejectAfterRead{RegistrationRepository: s.Registrations()}
		return wrapped
	}))
	ctx := context.Background()
	var rejectErr error
	wrapped.reject = func(id string) { rejectErr = f.approval.Reject(ctx, adminCaller, id) }

	requestID := f.submit(t, "raced@example.com")
	_, err := f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 12, 31),
	})
	require.NoError(t, rejectErr)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)

	_, err = f.users.GetByEmail(ctx, "raced@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, []events.EventType{events.EventRegistrationSubmitted, events.EventRegistrationRejected}, f.recorded.types())
}

type failingPromote struct {
	repository.RegistrationRepository
}

func (failingPromote) Promote(context.Context, string, *domain.User) error {
	return repository.ErrUnavailable
}

func TestApprovePromoteFailureChangesNothing(t *testing.T) {
	f := newFixture(t, withRegistrations(func(s *memory.Store) repository.RegistrationRepository {
		return failingPromote{RegistrationRepository: s.Registrations()}
	}))
	ctx := context.Background()

	requestID := f.submit(t, "offline@example.com")
	_, err := f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 12, 31),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreUnavailable))

	_, err = f.registrations.GetByID(ctx, requestID)
	require.NoError(t, err)
	users, err := f.users.List(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestApproveAlreadyPromotedRequestReportsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.submit(t, "twice@example.com")
	req, err := f.registrations.GetByID(ctx, requestID)
	require.NoError(t, err)

	// a user already exists for this request but the request lingers
	require.NoError(t, f.users.Create(ctx, &domain.User{
		SourceRequestID: requestID,
		Email:           req.Email,
		Status:          domain.EntitlementApproved,
	}))

	_, err = f.approval.Approve(ctx, adminCaller, requestID, ApproveInput{
		AccessStartDate: date(2024, 1, 1),
		AccessEndDate:   date(2024, 2, 1),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.registrations.GetByID(ctx, requestID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRejectIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.submit(t, "nope@example.com")

	require.NoError(t, f.approval.Reject(ctx, adminCaller, requestID))
	_, err := f.registrations.GetByID(ctx, requestID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, f.approval.Reject(ctx, adminCaller, requestID))
	assert.NoError(t, f.approval.Reject(ctx, adminCaller, "never-existed"))
	assert.Equal(t, []events.EventType{events.EventRegistrationSubmitted, events.EventRegistrationRejected}, f.recorded.types())
}

func TestAliceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.approved(t, "alice@example.com", date(2024, 1, 1), date(2024, 12, 31))

	decision := f.access.EvaluateAt(ctx, f.reload(t, alice.ID), date(2024, 6, 1))
	assert.Equal(t, access.Decision{Outcome: access.OutcomeGranted}, decision)
	assert.Equal(t, domain.EntitlementApproved, f.reload(t, alice.ID).Status)

	decision = f.access.EvaluateAt(ctx, f.reload(t, alice.ID), date(2025, 1, 1))
	assert.Equal(t, access.OutcomeExpired, decision.Outcome)
	assert.Equal(t, domain.EntitlementExpired, f.reload(t, alice.ID).Status)

	// evaluating again converges on the same answer without another write
	decision = f.access.EvaluateAt(ctx, f.reload(t, alice.ID), date(2025, 1, 1))
	assert.Equal(t, access.OutcomeExpired, decision.Outcome)
	assert.Equal(t, int64(1), f.metrics.Snapshot().Expirations)
}

func TestUpdateAccessWindowReactivates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := date(2025, 2, 1)
	f.clock.Set(today)

	user := f.approved(t, "back@example.com", date(2024, 1, 1), date(2024, 12, 31))
	f.access.Evaluate(ctx, user)
	require.Equal(t, domain.EntitlementExpired, f.reload(t, user.ID).Status)

	updated, err := f.approval.UpdateAccessWindow(ctx, adminCaller, user.ID, today, today.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementApproved, updated.Status)

	decision := f.access.EvaluateAt(ctx, f.reload(t, user.ID), today.Add(24*time.Hour))
	assert.True(t, decision.Granted())
	assert.Contains(t, f.recorded.types(), events.EventAccessWindowUpdated)
}

func TestStaleEvaluationKeepsExtendedWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.approved(t, "stale@example.com", date(2024, 1, 1), date(2024, 3, 1))
	stale := f.reload(t, user.ID)

	_, err := f.approval.UpdateAccessWindow(ctx, adminCaller, user.ID, date(2024, 6, 1), date(2024, 7, 1))
	require.NoError(t, err)

	decision := f.access.Evaluate(ctx, stale)
	assert.Equal(t, access.OutcomeExpired, decision.Outcome)
	assert.Equal(t, domain.EntitlementApproved, f.reload(t, user.ID).Status)
	assert.NotContains(t, f.recorded.types(), events.EventEntitlementExpired)
	assert.Zero(t, f.metrics.Snapshot().Expirations)
}

// extendAfterList runs extend once after the lapsed listing is read.
type extendAfterList struct {
	repository.UserRepository
	once   sync.Once
	extend func()
}

func (r *extendAfterList) ListLapsed(ctx context.Context, now time.Time) ([]domain.User, error) {
	lapsed, err := r.UserRepository.ListLapsed(ctx, now)
	r.once.Do(r.extend)
	return lapsed, err
}

func TestSweepSkipsWindowExtendedAfterListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.approved(t, "extended@example.com", date(2024, 1, 1), date(2024, 3, 1))

	users := &extendAfterList{UserRepository: f.users, extend: func() {
		_, err := f.approval.UpdateAccessWindow(ctx, adminCaller, user.ID, date(2024, 6, 1), date(2024, 7, 1))
		require.NoError(t, err)
	}}
	sweeper := NewMaintenanceService(MaintenanceDependencies{
		UserRepo:         users,
		RegistrationRepo: f.registrations,
		Metrics:          f.metrics,
		Clock:            f.clock.Now,
	})

	count, err := sweeper.SweepExpired(ctx, system)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, domain.EntitlementApproved, f.reload(t, user.ID).Status)
}

func TestUpdateAccessWindowStatusFollowsEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.approved(t, "shrink@example.com", date(2024, 1, 1), date(2024, 12, 31))

	updated, err := f.approval.UpdateAccessWindow(ctx, adminCaller, user.ID, date(2024, 1, 1), date(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementExpired, updated.Status)
	assert.Equal(t, date(2024, 3, 1), *updated.AccessEndDate)
}

func TestUpdateAccessWindowInvalidLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.approved(t, "keep@example.com", date(2024, 1, 1), date(2024, 12, 31))
	before := f.reload(t, user.ID)

	_, err := f.approval.UpdateAccessWindow(ctx, adminCaller, user.ID, date(2024, 12, 31), date(2024, 1, 1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidWindow))

	after := f.reload(t, user.ID)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, *before.AccessStartDate, *after.AccessStartDate)
	assert.Equal(t, *before.AccessEndDate, *after.AccessEndDate)
	assert.False(t, after.AccessStartDate.After(*after.AccessEndDate))

	_, err = f.approval.UpdateAccessWindow(ctx, adminCaller, "missing", date(2024, 1, 1), date(2024, 2, 1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRevokeAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.approved(t, "gone@example.com", date(2024, 1, 1), date(2024, 12, 31))

	revoked, err := f.approval.RevokeAccess(ctx, adminCaller, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementRejected, revoked.Status)
	decision := f.access.Evaluate(ctx, revoked)
	assert.Equal(t, access.Decision{Outcome: access.OutcomeRejected, Reason: access.ReasonInactive}, decision)

	require.NoError(t, f.approval.DeleteUser(ctx, adminCaller, user.ID))
	err = f.approval.DeleteUser(ctx, adminCaller, user.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.approval.RevokeAccess(ctx, adminCaller, user.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRestoreAccessFollowsStoredWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live := f.approved(t, "live@example.com", date(2024, 1, 1), date(2024, 12, 31))
	lapsed := f.approved(t, "lapsed@example.com", date(2024, 1, 1), date(2024, 3, 1))
	for _, id := range []string{live.ID, lapsed.ID} {
		_, err := f.approval.RevokeAccess(ctx, adminCaller, id)
		require.NoError(t, err)
	}

	restored, err := f.approval.RestoreAccess(ctx, adminCaller, live.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementApproved, restored.Status)
	assert.True(t, f.access.Evaluate(ctx, restored).Granted())

	restored, err = f.approval.RestoreAccess(ctx, adminCaller, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementExpired, restored.Status)
	assert.Equal(t, date(2024, 3, 1), *restored.AccessEndDate)
	assert.Contains(t, f.recorded.types(), events.EventAccessRestored)

	// restoring an expired user does not reactivate it
	again, err := f.approval.RestoreAccess(ctx, adminCaller, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementExpired, again.Status)

	_, err = f.approval.RestoreAccess(ctx, adminCaller, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.approval.RestoreAccess(ctx, domain.Caller{Subject: domain.SubjectTypeUser, ID: live.ID}, live.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestRestoreAccessWithoutWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "bare", SourceRequestID: "r-bare", Email: "bare@example.com", Status: domain.EntitlementRejected}))

	_, err := f.approval.RestoreAccess(ctx, adminCaller, "bare")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, domain.EntitlementRejected, f.reload(t, "bare").Status)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.approval.ListPendingRegistrations(ctx, adminCaller, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)

	expired, err := f.approval.ListExpiredUsers(ctx, adminCaller, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, expired)
	assert.Empty(t, expired)

	f.clock.Set(date(2025, 6, 1))
	early := f.approved(t, "early@example.com", date(2024, 1, 1), date(2024, 3, 1))
	late := f.approved(t, "late@example.com", date(2024, 1, 1), date(2024, 9, 1))
	f.approved(t, "live@example.com", date(2025, 1, 1), date(2025, 12, 31))
	f.submit(t, "waiting@example.com")

	swept, err := f.maintenance.SweepExpired(ctx, system)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	expired, err = f.approval.ListExpiredUsers(ctx, adminCaller, 0, 0)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, late.ID, expired[0].ID)
	assert.Equal(t, early.ID, expired[1].ID)

	approved := domain.EntitlementApproved
	live, err := f.approval.ListUsers(ctx, adminCaller, &approved, 0, 0)
	require.NoError(t, err)
	assert.Len(t, live, 1)

	pending, err = f.approval.ListPendingRegistrations(ctx, adminCaller, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "waiting@example.com", pending[0].Email)
}

func TestStoreErrorMapping(t *testing.T) {
	cases := map[error]string{
		repository.ErrNotFound:         apperrors.CodeNotFound,
		repository.ErrEmailTaken:       apperrors.CodeConflict,
		repository.ErrDuplicate:        apperrors.CodeConflict,
		repository.ErrPermissionDenied: apperrors.CodeSubmissionFailed,
		repository.ErrUnavailable:      apperrors.CodeStoreUnavailable,
		errors.New("boom"):             apperrors.CodeInternal,
	}
	for in, code := range cases {
		assert.True(t, apperrors.HasCode(storeError("user", in), code), in.Error())
	}
	assert.NoError(t, storeError("user", nil))
	forbidden := apperrors.NewForbidden("no")
	assert.Same(t, forbidden, storeError("user", forbidden))
}
