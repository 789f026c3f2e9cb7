package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/streamhub/internal/domain"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Set(date(2025, 1, 15))

	lapsed := f.approved(t, "a@example.com", date(2024, 1, 1), date(2024, 12, 31))
	live := f.approved(t, "b@example.com", date(2025, 1, 1), date(2025, 12, 31))
	revoked := f.approved(t, "c@example.com", date(2024, 1, 1), date(2024, 6, 30))
	_, err := f.approval.RevokeAccess(ctx, adminCaller, revoked.ID)
	require.NoError(t, err)

	count, err := f.maintenance.SweepExpired(ctx, adminCaller)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.maintenance.SweepExpired(ctx, system)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.Equal(t, domain.EntitlementExpired, f.reload(t, lapsed.ID).Status)
	assert.Equal(t, domain.EntitlementApproved, f.reload(t, live.ID).Status)
	assert.Equal(t, domain.EntitlementRejected, f.reload(t, revoked.ID).Status)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Sweeps)
	assert.Equal(t, int64(1), snap.Expirations)
}

func TestSweepRacingLazyExpiryCountsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Set(date(2025, 1, 15))
	users := make([]*domain.User, 0, 20)
	for i := 0; i < 20; i++ {
		users = append(users, f.approved(t, string(rune('a'+i))+"@example.com", date(2024, 1, 1), date(2024, 12, 31)))
	}

	var wg sync.WaitGroup
	var swept int
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := f.maintenance.SweepExpired(ctx, system)
		assert.NoError(t, err)
		swept = n
	}()
	go func() {
		defer wg.Done()
		for _, u := range users {
			f.access.Evaluate(ctx, u.Clone())
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(20), f.metrics.Snapshot().Expirations)
	assert.LessOrEqual(t, swept, 20)
	for _, u := range users {
		assert.Equal(t, domain.EntitlementExpired, f.reload(t, u.ID).Status)
	}
}

func TestMaintenanceRequiresMaintainer(t *testing.T) {
	f := newFixture(t)
	viewer := domain.Caller{Subject: domain.SubjectTypeUser, ID: "u1"}

	_, err := f.maintenance.SweepExpired(context.Background(), viewer)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.maintenance.Run(context.Background(), domain.Caller{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))

	result, err := f.maintenance.Run(context.Background(), system)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
}
