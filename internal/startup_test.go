package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

func TestWebhookEventsCoverSessionEvents(t *testing.T) {
	for _, name := range []pkgWhatsApp.EventName{
		pkgWhatsApp.EventQR,
		pkgWhatsApp.EventAuthenticated,
		pkgWhatsApp.EventReady,
		pkgWhatsApp.EventAuthFailure,
		pkgWhatsApp.EventDisconnected,
		pkgWhatsApp.EventMessageCreate,
		pkgWhatsApp.EventError,
		pkgWhatsApp.EventSessionCleared,
		pkgWhatsApp.EventRestarted,
	} {
		eventType, ok := webhookEvents[name]
		assert.True(t, ok, name)
		assert.Equal(t, string(name), string(eventType))
	}
}
