package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/config"
	"github.com/papergrade/papergrade-api/internal/utils"
)

// HealthResponse reports service liveness plus the readiness of the
// dependencies a grading run cannot proceed without.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
	AIProvider  string    `json:"ai_provider"`
}

// HealthCheck returns a handler that reports application health. The
// database is pinged on every call; the AI provider is reported as
// configured rather than probed, since a probe would spend a model
// invocation.
func HealthCheck(cfg config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Database:    "ok",
			AIProvider:  cfg.AIProvider,
		}

		if status := pingDatabase(c, db); status != "ok" {
			payload.Status = "degraded"
			payload.Database = status
		}

		return utils.SendSuccess(c, "health report", payload)
	}
}

func pingDatabase(c *fiber.Ctx, db *gorm.DB) string {
	if db == nil {
		return "not configured"
	}

	sqlDB, err := db.DB()
	if err != nil {
		return "unreachable"
	}
	if err := sqlDB.PingContext(c.Context()); err != nil {
		return "unreachable"
	}
	return "ok"
}
