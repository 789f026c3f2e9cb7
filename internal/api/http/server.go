package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/observability"
)

// ServerOptions tunes the fiber application.
type ServerOptions struct {
	Name           string
	RequestTimeout time.Duration
	MaxUploadMB    int
}

// NewServer builds a fiber app with the global middlewares installed and
// routes registered.
func NewServer(opts ServerOptions, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := fiber.Config{
		AppName:      opts.Name,
		ErrorHandler: ErrorHandler(logger, metrics),
	}
	if opts.MaxUploadMB > 0 {
		cfg.BodyLimit = opts.MaxUploadMB * 1024 * 1024
	}

	app := fiber.New(cfg)
	RegisterMiddlewares(app, logger, metrics, opts.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
