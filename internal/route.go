package internal

import (
	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/auth"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"

	ctlAuth "github.com/gdbrns/go-whatsapp-gateway/internal/auth"
	ctlDevice "github.com/gdbrns/go-whatsapp-gateway/internal/device"
	ctlIndex "github.com/gdbrns/go-whatsapp-gateway/internal/index"
	ctlMessaging "github.com/gdbrns/go-whatsapp-gateway/internal/messaging"
	ctlSpreadsheet "github.com/gdbrns/go-whatsapp-gateway/internal/spreadsheet"
)

func Routes(app *fiber.App) {
	// Configure OpenAPI / Swagger
	specURL := router.BaseURL + "/docs/swagger.json"
	swaggerHandler := swagger.New(swagger.Config{
		URL: specURL,
	})

	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Route for OpenAPI / Swagger
	// ---------------------------------------------
	app.Get(router.BaseURL+"/docs/swagger.json", func(c *fiber.Ctx) error {
		return c.SendFile("docs/swagger.json")
	})
	app.Get(router.BaseURL+"/docs/*", swaggerHandler)

	// Route for Messaging
	// ---------------------------------------------
	app.Post(router.BaseURL+"/send", ctlMessaging.Send)
	app.Post(router.BaseURL+"/send-with-image", ctlMessaging.SendWithImage)
	app.Post(router.BaseURL+"/send-bulk", ctlMessaging.SendBulk)
	app.Get(router.BaseURL+"/messages", ctlMessaging.GetMessages)
	app.Get(router.BaseURL+"/template-excel", router.HttpCacheInMemory(router.CacheTTLSeconds), ctlSpreadsheet.GetTemplateExcel)

	// Route for Session
	// ---------------------------------------------
	app.Get(router.BaseURL+"/status", ctlDevice.GetStatus)
	app.Get(router.BaseURL+"/diagnostics", ctlDevice.GetDiagnostics)
	app.Get(router.BaseURL+"/qr", ctlDevice.GetQR)

	sessionAuth := auth.SessionAuth()
	app.Post(router.BaseURL+"/clear-session", sessionAuth, ctlDevice.ClearSession)
	app.Post(router.BaseURL+"/restart", sessionAuth, ctlDevice.Restart)

	// Route for Operator Tokens
	// ---------------------------------------------
	app.Post(router.BaseURL+"/auth/token", auth.AdminAuth(), ctlAuth.IssueToken)
}
