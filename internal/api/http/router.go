package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat-service/internal/api/http/handlers"
	"github.com/spec-kit/support-chat-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Cases          *handlers.CasesHandler
	StaffCases     *handlers.StaffCasesHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Auth.StaffLogin)

	// Case creation is public; the response carries the guest token the
	// customer uses from then on.
	app.Post("/support-cases", cfg.Cases.CreateCase)

	authed := app.Group("/support-cases", cfg.AuthMiddleware.Handle)

	// RequireStaff guards attach per route: a group-level guard here would
	// run for the customer routes below as well.
	authed.Get("", auth.RequireStaff(), cfg.StaffCases.ListCases)
	authed.Get("/unseen/count", auth.RequireStaff(), cfg.StaffCases.UnseenCount)
	authed.Get("/unseen/details", auth.RequireStaff(), cfg.StaffCases.UnseenDetails)
	authed.Put("/:id/claim", auth.RequireStaff(), cfg.StaffCases.ClaimCase)
	authed.Put("/:id/supporter-name", auth.RequireStaff(), cfg.StaffCases.SetSupporterName)

	authed.Get("/:id", auth.RequireAuthenticated(), cfg.Cases.GetCase)
	authed.Put("/:id/messages", auth.RequireAuthenticated(), cfg.Cases.AppendMessage)
	authed.Put("/:id/seen", auth.RequireAuthenticated(), cfg.Cases.MarkSeen)
	authed.Put("/:id/close", auth.RequireAuthenticated(), cfg.Cases.CloseCase)

	app.Get("/ws", cfg.WS.Upgrade, cfg.WS.Serve())
}
