package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Tickets           *handlers.TicketsHandler
	HelperMiddleware  *auth.HelperMiddleware
	CreateRateLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	requireHelper := cfg.HelperMiddleware.RequireHelper

	tickets := app.Group("/tickets")
	tickets.Get("/", requireHelper, cfg.Tickets.List)
	tickets.Get("/id/:id", requireHelper, cfg.Tickets.GetByID)
	tickets.Get("/number/:ticketNumber/secret-key/:secretKey", cfg.Tickets.GetByNumber)
	tickets.Post("/", cfg.CreateRateLimiter, cfg.Tickets.Create)
	tickets.Put("/view/:id", requireHelper, cfg.Tickets.MarkViewed)
	tickets.Put("/close/:id", requireHelper, cfg.Tickets.MarkClosed)
}
