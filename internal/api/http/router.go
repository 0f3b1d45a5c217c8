package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Users          *handlers.UsersHandler
	Projects       *handlers.ProjectsHandler
	Issues         *handlers.IssuesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Metrics)

	app.Post("/signup", cfg.Users.Signup)
	app.Post("/login", cfg.Users.Login)

	projects := app.Group("/projects", cfg.AuthMiddleware.Handle)
	projects.Get("/", cfg.Projects.ListProjects)
	projects.Post("/", cfg.Projects.CreateProject)
	projects.Get("/:id", cfg.Projects.GetProject)
	projects.Delete("/:id", cfg.Projects.DeleteProject)
	projects.Get("/:id/issues", cfg.Issues.ListIssues)
	projects.Post("/:id/issues", cfg.Issues.CreateIssue)

	issues := app.Group("/issues", cfg.AuthMiddleware.Handle)
	issues.Put("/:id", cfg.Issues.UpdateIssue)
	issues.Delete("/:id", cfg.Issues.DeleteIssue)
}
