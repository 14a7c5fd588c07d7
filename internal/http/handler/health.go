package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} envelope
// @Router /health [get]
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(envelope{
			Success: true,
			Code:    fiber.StatusOK,
			Message: "Backend is running",
		})
	}
}

// Readiness answers 503 while the database cannot be reached.
func Readiness(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := db.Ping(c.UserContext()); err != nil {
			return newAPIError(fiber.StatusServiceUnavailable, "Database unavailable", err)
		}
		return c.JSON(envelope{
			Success: true,
			Code:    fiber.StatusOK,
			Message: "Ready",
		})
	}
}
