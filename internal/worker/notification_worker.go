package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/mq"
	"github.com/spec-kit/streamhub/internal/service"
)

// StartNotificationWorker subscribes the event fan-out and releases the
// broker connection once ctx ends. The returned channel closes after that.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, publisher mq.Publisher, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notifications == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications.RegisterHandlers()

	go func() {
		defer close(done)
		<-ctx.Done()
		if publisher == nil {
			return
		}
		if err := publisher.Close(); err != nil {
			logger.Warn("closing broker connection", zap.Error(err))
		}
	}()
	return done
}
