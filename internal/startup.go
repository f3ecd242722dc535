package internal

import (
	"context"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/webhook"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"

	ctlDevice "github.com/gdbrns/go-whatsapp-gateway/internal/device"
	ctlMessaging "github.com/gdbrns/go-whatsapp-gateway/internal/messaging"
)

var webhookEvents = map[pkgWhatsApp.EventName]webhook.EventType{
	pkgWhatsApp.EventQR:             webhook.EventQR,
	pkgWhatsApp.EventAuthenticated:  webhook.EventAuthenticated,
	pkgWhatsApp.EventReady:          webhook.EventReady,
	pkgWhatsApp.EventAuthFailure:    webhook.EventAuthFailure,
	pkgWhatsApp.EventDisconnected:   webhook.EventDisconnected,
	pkgWhatsApp.EventMessageCreate:  webhook.EventMessageCreate,
	pkgWhatsApp.EventError:          webhook.EventError,
	pkgWhatsApp.EventSessionCleared: webhook.EventSessionCleared,
	pkgWhatsApp.EventRestarted:      webhook.EventRestarted,
}

// Startup binds the session to the handlers and connects it in the background.
func Startup(ctx context.Context, session *pkgWhatsApp.Session, engine *webhook.Engine) {
	log.Print(nil).Info("Running Startup Tasks")

	ctlMessaging.Use(session)
	ctlDevice.Use(session)
	ctlDevice.UseDeliveries(engine)

	if engine.Enabled() {
		session.OnEvent(func(name pkgWhatsApp.EventName, data map[string]interface{}) {
			if eventType, ok := webhookEvents[name]; ok {
				engine.Dispatch(eventType, data)
			}
		})
	}

	pkgWhatsApp.Go("startup", func() {
		if err := session.Start(ctx); err != nil {
			log.Print(nil).Error("Failed to start WhatsApp client: " + err.Error())
		}
	})
}
