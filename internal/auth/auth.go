package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	typWhatsApp "github.com/gdbrns/go-whatsapp-gateway/internal/types"
	pkgAuth "github.com/gdbrns/go-whatsapp-gateway/pkg/auth"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
)

// IssueToken
// @Summary     Issue Operator Token
// @Description Sign a bearer token for the session management routes
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret"
// @Param       body body typWhatsApp.RequestToken false "Token subject"
// @Success     200 {object} router.Response
// @Failure     401 {object} router.Response
// @Failure     501 {object} router.Response
// @Security    AdminAuth
// @Router      /auth/token [post]
func IssueToken(c *fiber.Ctx) error {
	var req typWhatsApp.RequestToken
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return router.ResponseBadRequest(c, "Failed parse body request")
		}
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "operator"
	}

	token, expiresAt, err := pkgAuth.GenerateToken(subject, pkgAuth.TokenTTL)
	if err != nil {
		if errors.Is(err, pkgAuth.ErrJWTNotConfigured) {
			return router.ResponseError(c, fiber.StatusNotImplemented, "JWT_SECRET_KEY no está configurado", err.Error())
		}
		return router.ResponseInternalError(c, "Failed to generate token: "+err.Error())
	}

	return router.ResponseSuccessWithData(c, "Token generated", typWhatsApp.ResponseToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}
