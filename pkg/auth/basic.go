package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
)

// AdminAuth validates the X-Admin-Secret header.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}

		if AdminSecretKey == "" {
			return router.ResponseInternalError(c, "Admin secret key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}

		return c.Next()
	}
}

// SessionAuth requires a bearer token from GenerateToken. Without
// JWT_SECRET_KEY every request passes through.
func SessionAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if JWTSecretKey == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		c.Locals("operator", claims.Subject)
		return c.Next()
	}
}
