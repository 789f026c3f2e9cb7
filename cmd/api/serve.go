package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/streamhub/internal/api/http"
	"github.com/spec-kit/streamhub/internal/api/http/handlers"
	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/mq"
	"github.com/spec-kit/streamhub/internal/persistence"
	"github.com/spec-kit/streamhub/internal/service"
	"github.com/spec-kit/streamhub/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	if rt.pg.Enabled() && rt.cfg.Postgres.RunMigrations {
		if err := persistence.MigrateUp(rt.cfg.Postgres.DSN, logger); err != nil {
			return err
		}
	}

	rt.connectRedis()

	adminService := rt.authService()
	if email, password := rt.cfg.Auth.BootstrapAdminEmail, rt.cfg.Auth.BootstrapAdminPassword; email != "" && password != "" {
		created, err := adminService.EnsureAdmin(ctx, email, password)
		if err != nil {
			return err
		}
		if created {
			logger.Info("bootstrap admin created", zap.String("email", email))
		}
	}

	objects, err := rt.connectStorage(ctx)
	if err != nil {
		return err
	}

	var publisher mq.Publisher = mq.Noop{}
	if rt.cfg.Broker.URL != "" {
		client, err := mq.NewRabbitMQClient(rt.cfg.Broker)
		if err != nil {
			return err
		}
		publisher = client
		logger.Info("connected to rabbitmq", zap.String("queue", rt.cfg.Broker.Queue))
	} else {
		logger.Info("RABBITMQ_URL not provided; entitlement events stay in-process")
	}

	registrations := service.NewRegistrationService(service.RegistrationDependencies{
		UserRepo:         rt.users,
		RegistrationRepo: rt.registrations,
		Dispatcher:       rt.dispatcher,
		Logger:           logger,
		BcryptCost:       rt.cfg.Auth.BcryptCost,
	})
	approvals := service.NewApprovalService(service.ApprovalDependencies{
		UserRepo:         rt.users,
		RegistrationRepo: rt.registrations,
		Dispatcher:       rt.dispatcher,
		Logger:           logger,
	})
	access := service.NewAccessService(service.AccessDependencies{
		UserRepo:         rt.users,
		RegistrationRepo: rt.registrations,
		Tokens:           rt.tokens,
		Limiter:          rt.limiter,
		Dispatcher:       rt.dispatcher,
		Metrics:          rt.metrics,
		Logger:           logger,
	})
	catalog := service.NewCatalogService(service.CatalogDependencies{
		MovieRepo:  rt.movies,
		Storage:    objects,
		Access:     access,
		Logger:     logger,
		PresignTTL: rt.cfg.Storage.PresignTTL(),
	})
	maintenance := rt.maintenanceService()
	notifications := service.NewNotificationService(rt.dispatcher, publisher, rt.cfg.Broker, logger, rt.cfg.Notification)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	notifyDone := worker.StartNotificationWorker(workerCtx, notifications, publisher, logger)
	sweepDone := worker.NewExpirySweeper(maintenance, rt.cfg.Maintenance.SweepInterval(), logger).Start(workerCtx)

	deps := []handlers.Dependency{
		{Name: "store", Check: rt.pg},
	}
	if rt.redis.Enabled() {
		deps = append(deps, handlers.Dependency{Name: "redis", Check: rt.redis, Optional: true})
	}
	if objects != nil {
		deps = append(deps, handlers.Dependency{Name: "storage", Optional: true, Check: handlers.PingFunc(func(ctx context.Context) error {
			return objects.EnsureBucket(ctx)
		})})
	}

	app := httptransport.NewServer(httptransport.ServerOptions{
		Name:           rt.cfg.App.Name,
		RequestTimeout: rt.cfg.App.RequestTimeout(),
		MaxUploadMB:    rt.cfg.App.MaxUploadMB,
	}, logger, rt.metrics, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(rt.cfg.App.Name, rt.cfg.App.Version, rt.metrics, deps...),
		Users:          handlers.NewUsersHandler(registrations, access),
		Admin:          handlers.NewAdminHandler(adminService, approvals, maintenance),
		Movies:         handlers.NewMoviesHandler(catalog),
		AuthMiddleware: auth.NewAuthMiddleware(rt.tokens, rt.users, rt.admins),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", rt.cfg.App.Addr()))
		listenErr <- app.Listen(rt.cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		cancelWorkers()
		<-sweepDone
		<-notifyDone
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownErr := app.ShutdownWithTimeout(shutdownTimeout)
	cancelWorkers()
	<-sweepDone
	<-notifyDone
	if err := <-listenErr; err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	return shutdownErr
}
