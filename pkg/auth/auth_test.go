package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecrets(t *testing.T, admin string, jwtKey string) {
	t.Helper()
	prevAdmin, prevJWT := AdminSecretKey, JWTSecretKey
	AdminSecretKey, JWTSecretKey = admin, jwtKey
	t.Cleanup(func() { AdminSecretKey, JWTSecretKey = prevAdmin, prevJWT })
}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Post("/admin", AdminAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/restart", SessionAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func status(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAdminAuth(t *testing.T) {
	withSecrets(t, "admin-secret", "")
	app := protectedApp()

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/admin", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/admin", map[string]string{"X-Admin-Secret": "nope"}))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/admin", map[string]string{"X-Admin-Secret": "admin-secret"}))
}

func TestSessionAuthOpenWithoutSecret(t *testing.T) {
	withSecrets(t, "", "")
	assert.Equal(t, fiber.StatusOK, status(t, protectedApp(), "/restart", nil))
}

func TestSessionAuthWithToken(t *testing.T) {
	withSecrets(t, "", "0123456789abcdef0123456789abcdef")
	app := protectedApp()

	token, expiresAt, err := GenerateToken("ops", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/restart", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/restart", map[string]string{"Authorization": "Token " + token}))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/restart", map[string]string{"Authorization": "Bearer " + token}))

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestExpiredTokenRejected(t *testing.T) {
	withSecrets(t, "", "0123456789abcdef0123456789abcdef")

	token, _, err := GenerateToken("ops", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	withSecrets(t, "", "")
	_, _, err := GenerateToken("ops", time.Hour)
	assert.ErrorIs(t, err, ErrJWTNotConfigured)
}
