package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assign         *handlers.AssignHandler
	Monitor        *handlers.MonitorHandler
	Webhooks       *handlers.WebhooksHandler
	Agents         *handlers.AgentsHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authn := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole()}
	manager := auth.RequireRole(domain.AgentRoleManager)

	emails := app.Group("/emails", authn...)
	emails.Post("/ingest", cfg.Tickets.Ingest)
	emails.Post("/classify", cfg.Tickets.Classify)
	emails.Post("/auto-assign", cfg.Assign.AutoAssign)
	emails.Get("/auto-assign/workload", cfg.Assign.Workload)
	emails.Post("/:id/reply", cfg.Tickets.Reply)
	emails.Post("/:id/resolve", cfg.Tickets.Resolve)

	monitor := app.Group("/monitor", authn...)
	monitor.Post("/sla", cfg.Monitor.ScanSLA)
	monitor.Get("/sla", cfg.Monitor.ScanSLA)
	monitor.Get("/feed", cfg.Monitor.Feed)

	alerts := app.Group("/alerts", authn...)
	alerts.Get("", cfg.Monitor.ListAlerts)

	webhooks := app.Group("/webhooks", append(authn, manager)...)
	webhooks.Post("/subscribe", cfg.Webhooks.Subscribe)
	webhooks.Get("/subscribe", cfg.Webhooks.List)
	webhooks.Delete("/subscribe", cfg.Webhooks.Delete)

	agents := app.Group("/agents", authn...)
	agents.Get("", cfg.Agents.List)
	agents.Post("", manager, cfg.Agents.Create)
}
