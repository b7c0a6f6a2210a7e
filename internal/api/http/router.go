package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Patch("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AssignTicket)

	dashboard := app.Group("/dashboard", cfg.AuthMiddleware.Handle)
	dashboard.Get("/statistics", auth.RequireRole(domain.RoleAdmin, domain.RoleAgent), cfg.Dashboard.GetStatistics)
	dashboard.Get("/tickets/open", auth.RequireRole(domain.RoleAdmin, domain.RoleAgent), cfg.Dashboard.GetOpenTickets)
	dashboard.Get("/tickets/queue", auth.RequireRole(domain.RoleAdmin, domain.RoleAgent), cfg.Dashboard.GetMyQueue)
	dashboard.Get("/tickets/mine", cfg.Dashboard.GetMyTickets)
}
