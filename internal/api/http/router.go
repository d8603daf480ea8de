package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/contact-center/internal/api/http/handlers"
	"github.com/spec-kit/contact-center/internal/auth"
	"github.com/spec-kit/contact-center/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Ops            *handlers.OpsHandler
	AuthMiddleware *auth.AuthMiddleware
	Registry       *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	ops := app.Group("/ops", cfg.AuthMiddleware.Handle)
	ops.Post("/advisors/rebalance",
		auth.RequireRole(domain.OperatorRoleAdmin, domain.OperatorRoleSupervisor),
		cfg.Ops.Rebalance,
	)
	ops.Get("/tickets/:id/thread", auth.RequireRole(), cfg.Ops.GetThread)
}
