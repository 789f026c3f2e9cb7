package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/config"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/observability"
	"github.com/spec-kit/streamhub/internal/persistence"
	"github.com/spec-kit/streamhub/internal/repository"
	"github.com/spec-kit/streamhub/internal/repository/memory"
	"github.com/spec-kit/streamhub/internal/service"
	"github.com/spec-kit/streamhub/internal/storage"
)

// runtime holds the process-wide dependencies shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	pg    *persistence.Postgres
	redis *persistence.Redis

	users         repository.UserRepository
	registrations repository.RegistrationRepository
	admins        repository.AdminRepository
	movies        repository.MovieRepository

	dispatcher events.Dispatcher
	tokens     *auth.TokenManager
	limiter    auth.LoginLimiter
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		metrics:    observability.NewMetrics(),
		pg:         pg,
		dispatcher: events.NewInMemoryDispatcher(),
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}

	if pg.Enabled() {
		pool := pg.PoolHandle()
		rt.users = repository.NewUserRepository(pool)
		rt.registrations = repository.NewRegistrationRepository(pool)
		rt.admins = repository.NewAdminRepository(pool)
		rt.movies = repository.NewMovieRepository(pool)
	} else {
		store := memory.NewStore()
		rt.users = store.Users()
		rt.registrations = store.Registrations()
		rt.admins = store.Admins()
		rt.movies = store.Movies()
	}
	return rt, nil
}

// connectRedis enables login throttling when REDIS_ADDR is set.
func (rt *runtime) connectRedis() {
	rt.redis = persistence.NewRedis(rt.cfg.Redis, rt.logger)
	rt.limiter = auth.NewRedisLimiter(rt.redis.Client, rt.cfg.Auth.LoginMaxAttempts, rt.cfg.Auth.LoginWindow(), rt.logger)
}

// connectStorage returns nil when no MinIO endpoint is configured; the
// catalog then rejects uploads and playback.
func (rt *runtime) connectStorage(ctx context.Context) (storage.ObjectStorage, error) {
	if rt.cfg.Storage.Endpoint == "" {
		rt.logger.Info("MINIO_ENDPOINT not provided; movie assets disabled")
		return nil, nil
	}
	client, err := storage.NewMinioClient(rt.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %q: %w", client.Bucket(), err)
	}
	rt.logger.Info("object storage ready", zap.String("bucket", client.Bucket()))
	return client, nil
}

func (rt *runtime) authService() *service.AuthService {
	return service.NewAuthService(*rt.cfg, service.AuthDependencies{
		AdminRepo: rt.admins,
		Tokens:    rt.tokens,
		Limiter:   rt.limiter,
	})
}

func (rt *runtime) maintenanceService() *service.MaintenanceService {
	return service.NewMaintenanceService(service.MaintenanceDependencies{
		UserRepo:         rt.users,
		RegistrationRepo: rt.registrations,
		Dispatcher:       rt.dispatcher,
		Metrics:          rt.metrics,
		Logger:           rt.logger,
	})
}

func (rt *runtime) close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
