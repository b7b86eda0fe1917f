package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	SLA            *handlers.SLAHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/tickets", cfg.StaffTickets.ListStaffTickets)
	staff.Get("/tickets/:id", cfg.StaffTickets.GetStaffTicket)
	staff.Patch("/tickets/:id/status", cfg.StaffTickets.UpdateStatus)
	staff.Patch("/tickets/:id/priority", cfg.StaffTickets.UpdatePriority)
	staff.Patch("/tickets/:id/category", cfg.StaffTickets.UpdateCategory)
	staff.Patch("/tickets/:id/assignee", cfg.StaffTickets.Assign)
	staff.Get("/tickets/:id/history", cfg.StaffTickets.ListHistory)
	staff.Post("/sla/evaluate", cfg.SLA.Evaluate)

	reports := staff.Group("/reports", auth.RequireSupervisor())
	reports.Get("/sla", cfg.Reports.SLAReport)
	reports.Get("/sla/export", cfg.Reports.ExportSLAReport)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/sla/rules", cfg.SLA.ListRules)
	admin.Post("/sla/rules", cfg.SLA.CreateRule)
	admin.Get("/sla/rules/:id", cfg.SLA.GetRule)
	admin.Put("/sla/rules/:id", cfg.SLA.UpdateRule)
	admin.Delete("/sla/rules/:id", cfg.SLA.DeleteRule)
	admin.Get("/categories", cfg.SLA.ListCategories)
	admin.Post("/categories", cfg.SLA.CreateCategory)
	admin.Put("/categories/:id", cfg.SLA.UpdateCategory)
	admin.Get("/priorities", cfg.SLA.ListPriorities)
	admin.Put("/priorities/:code", cfg.SLA.UpsertPriority)
	admin.Get("/departments", cfg.Staff.ListDepartments)
	admin.Post("/departments", cfg.Staff.CreateDepartment)
	admin.Put("/departments/:id", cfg.Staff.UpdateDepartment)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Post("/staff", cfg.Staff.CreateStaff)
}
