package auth

import (
	"time"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
)

// AdminSecretKey guards token issuing (X-Admin-Secret).
var AdminSecretKey string

// JWTSecretKey signs operator tokens. Session management routes are open when it is empty.
var JWTSecretKey string

var TokenTTL time.Duration

func init() {
	AdminSecretKey = env.GetEnvStringOrDefault("ADMIN_SECRET_KEY", "")
	JWTSecretKey = env.GetEnvStringOrDefault("JWT_SECRET_KEY", "")
	TokenTTL = env.GetEnvDurationOrDefault("JWT_TOKEN_TTL", 24*time.Hour)
}
