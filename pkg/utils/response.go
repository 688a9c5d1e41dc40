package utils

import "github.com/gofiber/fiber/v2"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Fail is Error plus a machine-readable kind so clients can branch on the
// failure class instead of matching message strings.
func Fail(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"kind":    kind,
		"error":   message,
	})
}
