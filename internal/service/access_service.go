package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/access"
	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/observability"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

var denialMessages = map[access.Reason]string{
	access.ReasonPending:    "registration is awaiting approval",
	access.ReasonExpired:    "access period has ended",
	access.ReasonNotStarted: "access period has not started",
	access.ReasonInactive:   "account is not active",
}

// DeniedError renders a non-granted decision as an ACCESS_DENIED error.
func DeniedError(decision access.Decision) error {
	msg, ok := denialMessages[decision.Reason]
	if !ok {
		msg = "access denied"
	}
	return apperrors.NewAccessDenied(msg, map[string]any{
		"outcome": string(decision.Outcome),
		"reason":  string(decision.Reason),
	})
}

// LoginResult is a successful viewer login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	Decision  access.Decision
}

// AccessService runs the evaluator against stored users and persists lazy
// expiry.
type AccessService struct {
	users      repository.UserRepository
	requests   repository.RegistrationRepository
	tokens     *auth.TokenManager
	limiter    auth.LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// AccessDependencies bundles collaborators for the service.
type AccessDependencies struct {
	UserRepo         repository.UserRepository
	RegistrationRepo repository.RegistrationRepository
	Tokens           *auth.TokenManager
	Limiter          auth.LoginLimiter
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Clock            Clock
}

// NewAccessService builds the service.
func NewAccessService(deps AccessDependencies) *AccessService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NoopLimiter{}
	}
	return &AccessService{
		users:      deps.UserRepo,
		requests:   deps.RegistrationRepo,
		tokens:     deps.Tokens,
		limiter:    limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Evaluate decides access for user now and applies any implied transition.
func (s *AccessService) Evaluate(ctx context.Context, user *domain.User) access.Decision {
	return s.EvaluateAt(ctx, user, s.now())
}

// EvaluateAt is Evaluate at an explicit instant. The in-memory user reflects
// the transition even when persisting it failed; the next check retries it.
func (s *AccessService) EvaluateAt(ctx context.Context, user *domain.User, now time.Time) access.Decision {
	decision, transition := access.Evaluate(user, now)
	if transition != nil {
		s.applyTransition(ctx, user, *transition, now)
	}
	if !decision.Granted() {
		s.metrics.RecordDenial(string(decision.Outcome))
	}
	return decision
}

func (s *AccessService) applyTransition(ctx context.Context, user *domain.User, t access.Transition, now time.Time) {
	user.Status = t.To
	changed, err := s.users.ExpireIfLapsed(ctx, t.UserID, now)
	if err != nil {
		s.logger.Warn("lazy expiry not persisted", zap.String("user_id", t.UserID), zap.Error(err))
		return
	}
	if !changed {
		return
	}
	s.metrics.RecordExpiration()
	s.logger.Info("entitlement expired", zap.String("user_id", t.UserID), zap.String("source", "evaluate"))
	publish(ctx, s.dispatcher, s.logger, events.New(
		events.EventEntitlementExpired,
		t.UserID,
		events.Actor{Type: domain.SubjectTypeSystem},
		now,
		events.EntitlementExpiredPayload{Email: user.Email, AccessEndDate: user.AccessEndDate, Source: "evaluate"},
	))
}

// Check re-reads the caller's record and evaluates it.
func (s *AccessService) Check(ctx context.Context, caller domain.Caller) (*domain.User, access.Decision, error) {
	if !caller.Authenticated() {
		return nil, access.Decision{}, apperrors.NewUnauthenticated("authentication required")
	}
	if !caller.IsUser() {
		return nil, access.Decision{}, apperrors.NewForbidden("user session required")
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, access.Decision{}, storeError("user", err)
	}
	return user, s.Evaluate(ctx, user), nil
}

// Login authenticates a viewer and issues a session only when access is
// currently granted.
func (s *AccessService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if !s.limiter.Allow(ctx, email) {
		return nil, apperrors.NewRateLimited("too many login attempts")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.pendingOrInvalid(ctx, email, password)
	}
	if err != nil {
		return nil, storeError("user", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	s.limiter.Reset(ctx, email)

	decision := s.Evaluate(ctx, user)
	if !decision.Granted() {
		return nil, DeniedError(decision)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt, Decision: decision}, nil
}

// pendingOrInvalid tells a visitor with a correct password that their signup
// is still under review.
func (s *AccessService) pendingOrInvalid(ctx context.Context, email, password string) error {
	req, err := s.requests.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewUnauthenticated("invalid credentials")
	}
	if err != nil {
		return storeError("registration request", err)
	}
	if auth.ComparePassword(req.PasswordHash, password) != nil {
		return apperrors.NewUnauthenticated("invalid credentials")
	}
	s.metrics.RecordDenial(string(access.OutcomePending))
	return DeniedError(access.Decision{Outcome: access.OutcomePending, Reason: access.ReasonPending})
}
