package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/arena-go-api/internal/config"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ContestHandler  *handler.ContestHandler
	SessionHandler  *handler.SessionHandler
	ProgressHandler *handler.ProgressHandler
	ResultHandler   *handler.ResultHandler
	SeedHandler     *handler.SeedHandler
	JWTMiddleware   fiber.Handler
	HealthProbes    map[string]handler.HealthProbe
}

// EvaluateRateLimit throttles run and submit per participant.
func EvaluateRateLimit() fiber.Handler {
	return middleware.RateLimit("evaluate", 20, time.Minute)
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ContestHandler != nil {
		deps.ContestHandler.Register(api.Group("/contests"))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions", jwtMiddleware))
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(api.Group("/progress", jwtMiddleware))
	}

	if deps.ResultHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher))
		deps.ResultHandler.Register(admin)
	}
}
