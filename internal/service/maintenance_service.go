package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/observability"
	"github.com/spec-kit/streamhub/internal/repository"
)

// SweepResult summarizes one maintenance run.
type SweepResult struct {
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
}

// MaintenanceService converges stored status with the access windows.
type MaintenanceService struct {
	users      repository.UserRepository
	requests   repository.RegistrationRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// MaintenanceDependencies bundles collaborators for the service.
type MaintenanceDependencies struct {
	UserRepo         repository.UserRepository
	RegistrationRepo repository.RegistrationRepository
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Clock            Clock
}

// NewMaintenanceService builds the service.
func NewMaintenanceService(deps MaintenanceDependencies) *MaintenanceService {
	return &MaintenanceService{
		users:      deps.UserRepo,
		requests:   deps.RegistrationRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// SweepExpired flips every lapsed approved user to expired and returns how
// many rows this run changed. Each write re-checks the stored window, so rows
// flipped by lazy expiry or extended by an admin since the listing are
// skipped and a repeated run reports zero.
func (s *MaintenanceService) SweepExpired(ctx context.Context, caller domain.Caller) (int, error) {
	if err := requireMaintainer(caller); err != nil {
		return 0, err
	}
	now := s.now()
	lapsed, err := s.users.ListLapsed(ctx, now)
	if err != nil {
		return 0, storeError("user", err)
	}

	expired := 0
	for i := range lapsed {
		user := &lapsed[i]
		changed, err := s.users.ExpireIfLapsed(ctx, user.ID, now)
		if err != nil {
			s.metrics.RecordSweep(expired)
			return expired, storeError("user", err)
		}
		if !changed {
			continue
		}
		expired++
		publish(ctx, s.dispatcher, s.logger, events.New(
			events.EventEntitlementExpired,
			user.ID,
			events.ActorFrom(caller),
			now,
			events.EntitlementExpiredPayload{Email: user.Email, AccessEndDate: user.AccessEndDate, Source: "sweep"},
		))
	}

	s.metrics.RecordSweep(expired)
	s.logger.Info("expiry sweep finished",
		zap.Int("candidates", len(lapsed)),
		zap.Int("expired", expired),
		zap.String("caller", string(caller.Subject)))
	return expired, nil
}

// ReconcileRegistrations deletes requests that already became users.
func (s *MaintenanceService) ReconcileRegistrations(ctx context.Context, caller domain.Caller) (int, error) {
	if err := requireMaintainer(caller); err != nil {
		return 0, err
	}
	purged, err := s.requests.PurgePromoted(ctx)
	if err != nil {
		return 0, storeError("registration request", err)
	}
	if purged > 0 {
		s.logger.Info("purged promoted registration requests", zap.Int("count", purged))
	}
	return purged, nil
}

// Run performs both maintenance steps.
func (s *MaintenanceService) Run(ctx context.Context, caller domain.Caller) (SweepResult, error) {
	expired, err := s.SweepExpired(ctx, caller)
	if err != nil {
		return SweepResult{Expired: expired}, err
	}
	reconciled, err := s.ReconcileRegistrations(ctx, caller)
	return SweepResult{Expired: expired, Reconciled: reconciled}, err
}
