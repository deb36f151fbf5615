package handlers

import (
	"bazaar/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthCheck reports process liveness plus the state of the database and
// keyed store dependencies.
func HealthCheck(db *gorm.DB, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "unreachable"
		}

		storeStatus := "connected"
		if _, err := store.Exists(c.Context(), "health:probe"); err != nil {
			storeStatus = "unreachable"
		}

		status := fiber.StatusOK
		if dbStatus != "connected" || storeStatus != "connected" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"database": dbStatus,
				"store":    storeStatus,
			},
		})
	}
}
