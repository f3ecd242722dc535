package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/webhook"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

type fakeSession struct {
	ready    bool
	qr       *pkgWhatsApp.QR
	qrErr    error
	opErr    error
	restarts int
}

func (f *fakeSession) Status() pkgWhatsApp.Status {
	return pkgWhatsApp.Status{IsReady: f.ready, State: pkgWhatsApp.StateReady, Message: "listo"}
}

func (f *fakeSession) Diagnostics() pkgWhatsApp.Diagnostics {
	return pkgWhatsApp.Diagnostics{
		Status: f.Status(),
		Events: []pkgWhatsApp.Event{{Event: pkgWhatsApp.EventReady, Timestamp: "2024-05-01T14:03:09Z"}},
	}
}

func (f *fakeSession) QR() (*pkgWhatsApp.QR, error) {
	return f.qr, f.qrErr
}

func (f *fakeSession) ClearSession(ctx context.Context) error {
	return f.opErr
}

func (f *fakeSession) Restart(ctx context.Context) error {
	f.restarts++
	return f.opErr
}

type fakeDeliveries []webhook.DeliveryLog

func (f fakeDeliveries) Deliveries() []webhook.DeliveryLog { return f }

func setup(t *testing.T, s *fakeSession) *fiber.App {
	t.Helper()
	prevSession, prevDeliveries := session, deliveries
	Use(s)
	UseDeliveries(fakeDeliveries{{ID: "d1", EventType: webhook.EventReady, Status: webhook.DeliverySuccess}})
	t.Cleanup(func() { session, deliveries = prevSession, prevDeliveries })

	app := fiber.New()
	app.Get("/status", GetStatus)
	app.Get("/diagnostics", GetDiagnostics)
	app.Get("/qr", GetQR)
	app.Post("/clear-session", ClearSession)
	app.Post("/restart", Restart)
	return app
}

func call(t *testing.T, app *fiber.App, method string, path string) (*http.Response, router.Response) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out router.Response
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestGetStatus(t *testing.T) {
	app := setup(t, &fakeSession{ready: true})
	resp, res := call(t, app, fiber.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, res.Data.(map[string]interface{})["isReady"])
}

func TestGetDiagnostics(t *testing.T) {
	app := setup(t, &fakeSession{})
	resp, res := call(t, app, fiber.MethodGet, "/diagnostics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := res.Data.(map[string]interface{})
	assert.Len(t, data["events"], 1)
	assert.Len(t, data["webhookDeliveries"], 1)
}

func TestGetQR(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	app := setup(t, &fakeSession{qr: &pkgWhatsApp.QR{
		Code:        "2@abc",
		Image:       "data:image/png;base64,AAAA",
		GeneratedAt: at,
		ExpiresAt:   at.Add(20 * time.Second),
	}})

	resp, res := call(t, app, fiber.MethodGet, "/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 20, res.Data.(map[string]interface{})["timeout"])

	resp, _ = call(t, app, fiber.MethodGet, "/qr?output=html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
}

func TestGetQRSizeParam(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	app := setup(t, &fakeSession{qr: &pkgWhatsApp.QR{
		Code:        "2@abc",
		Image:       "data:image/png;base64,AAAA",
		GeneratedAt: at,
		ExpiresAt:   at.Add(20 * time.Second),
	}})

	resp, _ := call(t, app, fiber.MethodGet, "/qr?size=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, res := call(t, app, fiber.MethodGet, "/qr?size=128")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	image := res.Data.(map[string]interface{})["image"].(string)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))
	assert.NotEqual(t, "data:image/png;base64,AAAA", image)
}

func TestGetQRUnavailable(t *testing.T) {
	app := setup(t, &fakeSession{qrErr: pkgWhatsApp.ErrNoQR})
	resp, _ := call(t, app, fiber.MethodGet, "/qr")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionOperations(t *testing.T) {
	s := &fakeSession{}
	app := setup(t, s)

	resp, _ := call(t, app, fiber.MethodPost, "/restart")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.restarts)

	resp, _ = call(t, app, fiber.MethodPost, "/clear-session")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.opErr = pkgWhatsApp.ErrSessionBusy
	resp, _ = call(t, app, fiber.MethodPost, "/clear-session")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	s.opErr = errors.New("datastore unavailable")
	resp, res := call(t, app, fiber.MethodPost, "/restart")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error al reiniciar el cliente", res.Message)
}
