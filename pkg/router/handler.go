package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func HttpErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	return ResponseError(c, code, message, "")
}
