package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mns-opti/ticket-bridge/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/status", cfg.Health.Status)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/ticket", cfg.Tickets.CreateTicket)
}
