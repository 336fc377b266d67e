package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/auth"
	"github.com/chainraise/backend/internal/config"
)

const CtxAddress = "wallet_address"

// AuthMiddleware requires a valid bearer JWT and stores the wallet address
// in the request context.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxAddress, strings.ToLower(claims.Address))
		return c.Next()
	}
}

// OptionalAuthMiddleware extracts the address when a valid token is present
// but lets anonymous requests through. Listing endpoints use it: the same
// route serves both viewers, only the lifecycle assessment differs.
func OptionalAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if tokenStr := strings.TrimPrefix(authHeader, "Bearer "); tokenStr != authHeader {
			if claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr); err == nil {
				c.Locals(CtxAddress, strings.ToLower(claims.Address))
			}
		}
		return c.Next()
	}
}

func GetAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}
