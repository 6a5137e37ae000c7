package controllers

import (
	"context"
	"time"

	"academias_go/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct{}

// GetHealthStatus reports database and Redis connectivity.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK

	dbStatus := "ok"
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if rc := database.GetRedisClient(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		} else {
			redisStatus = "ok"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"service":  "Academias Admin API",
		"database": dbStatus,
		"redis":    redisStatus,
	})
}
