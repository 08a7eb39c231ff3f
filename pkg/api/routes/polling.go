package routes

import (
	"github.com/gofiber/fiber/v2"
)

func PollingRouter(router fiber.Router, status PollingStatus) {
	router.Get("/status", func(c *fiber.Ctx) error {
		if status == nil {
			return c.JSON(fiber.Map{
				"enabled": false,
				"message": "Polling not initialized",
			})
		}

		return c.JSON(status.Status())
	})
}
