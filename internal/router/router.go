package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/config"
	"github.com/papergrade/papergrade-api/internal/handler"
	"github.com/papergrade/papergrade-api/internal/middleware"
	"github.com/papergrade/papergrade-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB                 *gorm.DB
	ExamHandler        *handler.ExamHandler
	AnswerSheetHandler *handler.AnswerSheetHandler
	GradingHandler     *handler.GradingHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	exams := api.Group("/exams", jwtMiddleware)
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(exams)
	}
	if deps.AnswerSheetHandler != nil {
		deps.AnswerSheetHandler.RegisterExamRoutes(exams)

		sheets := api.Group("/sheets", jwtMiddleware)
		deps.AnswerSheetHandler.RegisterSheetRoutes(sheets)

		if deps.GradingHandler != nil {
			// Model invocations are expensive; grading triggers get their
			// own limiter on top of auth.
			gradeLimiter := middleware.RateLimit("grading", 10, time.Minute)
			deps.GradingHandler.RegisterSheetRoutes(api.Group("/sheets", jwtMiddleware, gradeLimiter))
			deps.GradingHandler.RegisterExamRoutes(api.Group("/exams", jwtMiddleware, gradeLimiter))
		}
	}
}
