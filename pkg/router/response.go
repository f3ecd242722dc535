package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
)

type Response struct {
	Status  bool        `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message || c.OriginalURL() == BaseURL {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	entry := log.Print(c)
	if code < http.StatusInternalServerError {
		entry.Warn(fmt.Sprintf("%d %v", code, message))
		return
	}
	if statusMessage == message {
		entry.Error(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		entry.Error(fmt.Sprintf("%d %v", code, message))
	}
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	return ResponseSuccessWithData(c, message, nil)
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	response := Response{
		Status: true,
		Code:   http.StatusOK,
		Data:   data,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(response.Code)
	}
	response.Message = message

	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseSuccessWithHTML(c *fiber.Ctx, html string) error {
	logSuccess(c, http.StatusOK, http.StatusText(http.StatusOK))
	c.Type("html", "utf-8")
	return c.Status(http.StatusOK).SendString(html)
}

// ResponseAttachment streams a generated file as a download.
func ResponseAttachment(c *fiber.Ctx, fileName string, contentType string, body []byte) error {
	logSuccess(c, http.StatusOK, "attachment "+fileName)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Status(http.StatusOK).Send(body)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// ResponseError writes the failure envelope for any status code.
func ResponseError(c *fiber.Ctx, code int, message string, details string) error {
	response := Response{
		Status:  false,
		Code:    code,
		Details: details,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	response.Message = message
	response.Error = message

	logError(c, response.Code, strings.TrimSpace(response.Message+" "+details))
	return c.Status(response.Code).JSON(response)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusBadRequest, message, "")
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusUnauthorized, message, "")
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusInternalServerError, message, "")
}
