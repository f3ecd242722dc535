package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory caches GET responses of the routes it is mounted on.
func HttpCacheInMemory(ttl int) fiber.Handler {
	if ttl <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet
		},
		Expiration:           time.Duration(ttl) * time.Second,
		StoreResponseHeaders: true,
	})
}
