package whatsapp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/media"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/validation"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not ready sentinel", ErrClientNotReady, http.StatusServiceUnavailable},
		{"not ready text", errors.New("El cliente de WhatsApp no está listo todavía"), http.StatusServiceUnavailable},
		{"not ready english", errors.New("client not ready"), http.StatusServiceUnavailable},
		{"protocol error", errors.New("Protocol error (Runtime.callFunctionOn): Target closed"), http.StatusServiceUnavailable},
		{"websocket down", whatsmeow.ErrNotConnected, http.StatusServiceUnavailable},
		{"iq timeout", fmt.Errorf("send: %w", whatsmeow.ErrIQTimedOut), http.StatusServiceUnavailable},
		{"lid text", errors.New("Lid is missing in chat table"), http.StatusBadRequest},
		{"lid upper", errors.New("failed to resolve LID for user"), http.StatusBadRequest},
		{"invalid is not lid", errors.New("invalid response"), http.StatusInternalServerError},
		{"lid sentinel", fmt.Errorf("%w: boom", ErrRecipientUnresolved), http.StatusBadRequest},
		{"not on whatsapp", ErrNotOnWhatsApp, http.StatusNotFound},
		{"image 404", fmt.Errorf("fetch: %w", media.ErrImageNotFound), http.StatusNotFound},
		{"image timeout", media.ErrImageTimeout, http.StatusRequestTimeout},
		{"not an image", media.ErrNotAnImage, http.StatusBadRequest},
		{"bad phone", validation.ErrPhoneFormat, http.StatusBadRequest},
		{"busy", ErrSessionBusy, http.StatusConflict},
		{"no qr", ErrNoQR, http.StatusNotFound},
		{"download failed", media.ErrDownload, http.StatusInternalServerError},
		{"unknown", errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusCode(tc.err))
		})
	}
}

func TestClassifyPrefersSentinels(t *testing.T) {
	// an image timeout mentioning "Protocol error" is still an image timeout
	err := fmt.Errorf("%w: Protocol error", media.ErrImageTimeout)
	assert.Equal(t, KindImageTimeout, Classify(err))
	assert.Equal(t, KindUnknown, Classify(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("Protocol error")))
	assert.True(t, isRetryable(whatsmeow.ErrIQTimedOut))
	assert.False(t, isRetryable(ErrNotOnWhatsApp))
	assert.False(t, isRetryable(ErrClientNotReady))
}
