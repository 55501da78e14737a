package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/golmok/internal/config"
	"github.com/example/golmok/internal/utils"
)

// AdminAuth validates the admin bearer token on panel routes.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		if err := utils.ParseAdminToken(cfg.JWTSecret, parts[1]); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		return c.Next()
	}
}
