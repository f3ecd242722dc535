package main

// @title Go WhatsApp Gateway REST API
// @version 1.0.0
// @description Single-session WhatsApp REST gateway: text, image and bulk sends, received messages, session status and diagnostics

// @contact.name gdbrns
// @contact.url https://github.com/gdbrns/go-whatsapp-gateway

// @license.name MIT
// @license.url https://github.com/gdbrns/go-whatsapp-gateway/blob/main/LICENSE

// @host localhost:3000
// @BasePath /api/whatsapp

// @securityDefinitions.apikey AdminAuth
// @in header
// @name X-Admin-Secret
// @description Admin secret key for issuing operator tokens

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token for session management

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/webhook"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"

	"github.com/gdbrns/go-whatsapp-gateway/internal"
)

type Server struct {
	Address string
	Port    string
}

func main() {
	var err error

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize WhatsApp Session
	session, err := pkgWhatsApp.NewSession(ctx, pkgWhatsApp.LoadConfig())
	if err != nil {
		log.Print(nil).Fatal("Failed to open WhatsApp session: " + err.Error())
	}

	// Initialize Webhook Engine
	engine := webhook.NewEngine(webhook.ConfigFromEnv())

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler:   router.HttpErrorHandler,
		BodyLimit:      router.BodyLimitBytes(),
		ReadBufferSize: 8192,
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
		Next: func(c *fiber.Ctx) bool {
			return strings.Contains(c.Path(), "docs")
		},
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Secret",
		AllowMethods: "GET,POST",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app)

	// Running Startup Tasks
	internal.Startup(ctx, session, engine)

	// Running Routines Tasks
	internal.Routines(c, session)

	// Get Server Configuration with defaults
	var serverConfig Server

	// SERVER_ADDRESS: default "0.0.0.0" (all interfaces)
	serverConfig.Address = env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")

	// SERVER_PORT: default "3000"
	serverConfig.Port = env.GetEnvStringOrDefault("SERVER_PORT", "3000")

	// Start Server
	go func() {
		if err := app.Listen(serverConfig.Address + ":" + serverConfig.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	cancel()

	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Try To Shutdown Server
	err = app.ShutdownWithContext(ctxShutdown)
	if err != nil {
		log.Print(nil).Error(err.Error())
	}

	// Try To Shutdown Cron
	<-c.Stop().Done()

	// Disconnect the client and drain pending webhooks
	session.Close()
	engine.Shutdown()
}
