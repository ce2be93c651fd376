package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yakubjanov004/telecom-support-engine/internal/api/http/handlers"
	"github.com/yakubjanov004/telecom-support-engine/internal/auth"
	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.RequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes, one per engine operation.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	api.Post("/requests", cfg.Requests.Create)
	api.Get("/requests", cfg.Requests.List)
	api.Get("/requests/:id/durations", auth.RequireStaff(), cfg.Requests.Durations)
	api.Get("/requests/:id/history", auth.RequireStaff(), cfg.Requests.History)

	api.Post("/requests/:id/claim", auth.RequireStaff(), cfg.Requests.Claim)
	api.Post("/requests/:id/assign", auth.RequireStaff(), cfg.Requests.Assign)
	api.Post("/requests/:id/transfer", auth.RequireStaff(), cfg.Requests.Transfer)
	api.Post("/requests/:id/diagnose", auth.RequireRole(domain.RoleTechnician), cfg.Requests.Diagnose)
	api.Post("/requests/:id/materials", auth.RequireRole(domain.RoleTechnician), cfg.Requests.RequestMaterials)
	api.Post("/requests/:id/complete", auth.RequireRole(domain.RoleTechnician, domain.RoleManager), cfg.Requests.Complete)
	api.Post("/requests/:id/cancel", cfg.Requests.Cancel)
}
