package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/repairdesk/repair-service/internal/api/http/handlers"
	"github.com/repairdesk/repair-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Help           *handlers.HelpHandler
	Reports        *handlers.ReportsHandler
	Reference      *handlers.ReferenceHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/auth/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	can := func(entity string, op auth.Operation) fiber.Handler {
		return auth.Require(cfg.Policy, entity, op)
	}

	api.Get("/me", cfg.Users.Me)

	users := api.Group("/users")
	users.Get("", can(auth.EntityUser, auth.OpRead), cfg.Users.List)
	users.Post("", can(auth.EntityUser, auth.OpCreate), cfg.Users.Create)
	users.Put("/:id", can(auth.EntityUser, auth.OpUpdate), cfg.Users.Update)
	users.Delete("/:id", can(auth.EntityUser, auth.OpDelete), cfg.Users.Delete)

	requests := api.Group("/requests")
	requests.Get("", can(auth.EntityRepairRequest, auth.OpRead), cfg.Requests.List)
	requests.Post("", can(auth.EntityRepairRequest, auth.OpCreate), cfg.Requests.Create)
	requests.Get("/:id", can(auth.EntityRepairRequest, auth.OpRead), cfg.Requests.Get)
	requests.Put("/:id", can(auth.EntityRepairRequest, auth.OpUpdate), cfg.Requests.Update)
	requests.Delete("/:id", can(auth.EntityRepairRequest, auth.OpDelete), cfg.Requests.Delete)
	requests.Get("/:id/qr", can(auth.EntityRepairRequest, auth.OpRead), cfg.Requests.QR)
	requests.Post("/:id/comments", can(auth.EntityComment, auth.OpCreate), cfg.Requests.AddComment)
	requests.Post("/:id/spare-parts", can(auth.EntitySparePart, auth.OpCreate), cfg.Requests.AddSparePart)
	requests.Delete("/:id/spare-parts/:linkID", can(auth.EntitySparePart, auth.OpDelete), cfg.Requests.RemoveSparePart)
	requests.Post("/:id/help", can(auth.EntityHelpRequest, auth.OpCreate), cfg.Help.Open)

	help := api.Group("/help-requests")
	help.Get("", can(auth.EntityHelpRequest, auth.OpRead), cfg.Help.List)
	help.Post("/:id/close", can(auth.EntityHelpRequest, auth.OpUpdate), cfg.Help.Close)
	help.Post("/:id/reopen", can(auth.EntityHelpRequest, auth.OpUpdate), cfg.Help.Reopen)

	reports := api.Group("/reports", can(auth.EntityReport, auth.OpRead))
	reports.Get("", cfg.Reports.Index)
	reports.Get("/export", cfg.Reports.Export)
	reports.Get("/:name", cfg.Reports.Show)

	api.Get("/diagnostics", can(auth.EntityDiagnostics, auth.OpRead), cfg.Reports.Diagnostics)

	reference := api.Group("/reference")
	reference.Get("", can(auth.EntityReference, auth.OpRead), cfg.Reference.Catalog)
	reference.Post("/equipment-types", can(auth.EntityReference, auth.OpCreate), cfg.Reference.CreateEquipmentType)
}
