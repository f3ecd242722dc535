package device

import (
	"context"
	"html"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	typWhatsApp "github.com/gdbrns/go-whatsapp-gateway/internal/types"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/webhook"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

// Session is the part of the WhatsApp session the device routes need.
type Session interface {
	Status() pkgWhatsApp.Status
	Diagnostics() pkgWhatsApp.Diagnostics
	QR() (*pkgWhatsApp.QR, error)
	ClearSession(ctx context.Context) error
	Restart(ctx context.Context) error
}

type DeliverySource interface {
	Deliveries() []webhook.DeliveryLog
}

var (
	session    Session
	deliveries DeliverySource
)

func Use(s Session) {
	session = s
}

func UseDeliveries(d DeliverySource) {
	deliveries = d
}

func responseError(c *fiber.Ctx, err error, fallback string) error {
	kind := pkgWhatsApp.Classify(err)
	message := fallback
	if kind != pkgWhatsApp.KindUnknown {
		message = kind.Message()
	}
	return router.ResponseError(c, kind.HTTPStatus(), message, err.Error())
}

// GetStatus
// @Summary     Client Status
// @Description Readiness of the WhatsApp client
// @Tags        Session
// @Produce     json
// @Success     200 {object} router.Response
// @Router      /status [get]
func GetStatus(c *fiber.Ctx) error {
	st := session.Status()
	return router.ResponseSuccessWithData(c, st.Message, st)
}

// GetDiagnostics
// @Summary     Client Diagnostics
// @Description Recent lifecycle events, client logs and webhook deliveries
// @Tags        Session
// @Produce     json
// @Success     200 {object} router.Response
// @Router      /diagnostics [get]
func GetDiagnostics(c *fiber.Ctx) error {
	res := typWhatsApp.ResponseDiagnostics{
		Diagnostics:       session.Diagnostics(),
		WebhookDeliveries: []webhook.DeliveryLog{},
	}
	if deliveries != nil {
		res.WebhookDeliveries = deliveries.Deliveries()
	}
	return router.ResponseSuccessWithData(c, "", res)
}

// GetQR
// @Summary     Pairing QR Code
// @Description Latest QR code to link the gateway as a WhatsApp device
// @Tags        Session
// @Produce     json,html
// @Param       output query string false "json (default) or html"
// @Param       size query int false "PNG size in pixels (64-1024)"
// @Success     200 {object} router.Response
// @Failure     404 {object} router.Response
// @Router      /qr [get]
func GetQR(c *fiber.Ctx) error {
	var req typWhatsApp.RequestQR
	if err := c.QueryParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse query request")
	}

	qr, err := session.QR()
	if err != nil {
		return responseError(c, err, "Error al generar el código QR")
	}

	if req.Size > 0 {
		png, err := pkgWhatsApp.QRPNGSize(qr.Code, req.Size)
		if err != nil {
			return router.ResponseError(c, fiber.StatusInternalServerError, "Error al generar el código QR", err.Error())
		}
		qr.Image = pkgWhatsApp.QRDataURL(png)
	}

	res := typWhatsApp.ResponseQR{
		QRCode:      qr.Code,
		Image:       qr.Image,
		GeneratedAt: qr.GeneratedAt,
		ExpiresAt:   qr.ExpiresAt,
		Timeout:     int(qr.ExpiresAt.Sub(qr.GeneratedAt).Seconds()),
	}

	if strings.EqualFold(req.Output, "html") {
		htmlContent := `
		<html>
			<head>
				<title>WhatsApp Gateway Login</title>
				<meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
			</head>
			<body>
				<img src="` + html.EscapeString(res.Image) + `" />
				<p>
					<b>QR Code Scan</b>
					<br/>
					Timeout in ` + strconv.Itoa(res.Timeout) + ` Second(s)
				</p>
			</body>
		</html>
		`
		return router.ResponseSuccessWithHTML(c, htmlContent)
	}

	return router.ResponseSuccessWithData(c, "Success Generate QR Code", res)
}

// ClearSession
// @Summary     Clear Session
// @Description Log the device out and start a new pairing
// @Tags        Session
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} router.Response
// @Failure     409 {object} router.Response
// @Router      /clear-session [post]
func ClearSession(c *fiber.Ctx) error {
	if err := session.ClearSession(c.UserContext()); err != nil {
		return responseError(c, err, "Error al limpiar la sesión")
	}
	return router.ResponseSuccess(c, "Sesión eliminada. Escanea el nuevo código QR para vincular el dispositivo")
}

// Restart
// @Summary     Restart Client
// @Description Reconnect the WhatsApp client over the stored session
// @Tags        Session
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} router.Response
// @Failure     409 {object} router.Response
// @Router      /restart [post]
func Restart(c *fiber.Ctx) error {
	if err := session.Restart(c.UserContext()); err != nil {
		return responseError(c, err, "Error al reiniciar el cliente")
	}
	return router.ResponseSuccess(c, "Cliente de WhatsApp reiniciando")
}
