package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradesync-go-api/internal/config"
	"github.com/noah-isme/gradesync-go-api/internal/handler"
	"github.com/noah-isme/gradesync-go-api/internal/middleware"
	"github.com/noah-isme/gradesync-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	GradeHandler      *handler.GradeHandler
	EscalationHandler *handler.EscalationHandler
	SimilarityHandler *handler.SimilarityHandler
	DashboardHandler  *handler.DashboardHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.SubmissionHandler != nil {
		submissions := protected.Group("/submissions", middleware.RequireRole(
			middleware.AuthRoleExaminer, middleware.AuthRoleModerator,
		))
		deps.SubmissionHandler.Register(submissions)

		violations := protected.Group("/violations", middleware.RequireRole(
			middleware.AuthRoleExaminer, middleware.AuthRoleModerator,
		))
		deps.SubmissionHandler.RegisterViolations(violations)

		if deps.GradeHandler != nil {
			deps.GradeHandler.Register(submissions)
		}
		if deps.EscalationHandler != nil {
			// Assignment is stricter than the rest of the group: examiners
			// can grade but only moderators pick who double-checks them.
			submissions.Post("/:id/moderator", middleware.WithAuth(
				deps.EscalationHandler.AssignModerator(),
				middleware.AuthOptions{Role: middleware.AuthRoleModerator},
			))
		}
	}

	if deps.EscalationHandler != nil {
		escalations := protected.Group("/escalations", middleware.RequireRole(
			middleware.AuthRoleModerator,
		))
		deps.EscalationHandler.Register(escalations)
	}

	if deps.SimilarityHandler != nil {
		similarity := protected.Group("/similarity",
			middleware.RequireRole(middleware.AuthRoleExaminer, middleware.AuthRoleModerator),
			middleware.RateLimit("similarity", 30, time.Minute),
		)
		deps.SimilarityHandler.Register(similarity)
	}

	if deps.DashboardHandler != nil {
		ws := app.Group("/ws", jwtMiddleware)
		deps.DashboardHandler.Register(ws)
	}
}
