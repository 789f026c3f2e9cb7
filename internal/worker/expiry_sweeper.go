package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/service"
)

// Maintainer is the part of the maintenance service the sweeper drives.
type Maintainer interface {
	Run(ctx context.Context, caller domain.Caller) (service.SweepResult, error)
}

// ExpirySweeper runs maintenance on a fixed interval until its context ends.
type ExpirySweeper struct {
	maintainer Maintainer
	interval   time.Duration
	logger     *zap.Logger
	caller     domain.Caller
}

// NewExpirySweeper builds a sweeper. A non-positive interval disables it.
func NewExpirySweeper(maintainer Maintainer, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		maintainer: maintainer,
		interval:   interval,
		logger:     logger,
		caller:     domain.SystemCaller("expiry-sweeper"),
	}
}

// Start runs one sweep immediately, then one per interval. It returns a
// channel closed once the loop has exited.
func (s *ExpirySweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.interval <= 0 || s.maintainer == nil {
		s.logger.Info("expiry sweeper disabled")
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
	return done
}

func (s *ExpirySweeper) runOnce(ctx context.Context) {
	result, err := s.maintainer.Run(ctx, s.caller)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
		}
		return
	}
	s.logger.Debug("expiry sweep",
		zap.Int("expired", result.Expired),
		zap.Int("reconciled", result.Reconciled))
}
