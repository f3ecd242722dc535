package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
)

// RecoveryMiddleware converts panics into structured JSON responses and logs them.
// It must be registered before application routes.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				message := fmt.Sprintf("%v", rec)
				resp := Response{
					Status:  false,
					Code:    fiber.StatusInternalServerError,
					Message: "Internal server error",
					Error:   message,
				}
				log.Print(c).Error("panic recovered: " + message)
				err = c.Status(resp.Code).JSON(resp)
			}
		}()
		return c.Next()
	}
}
