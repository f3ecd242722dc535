package router

import (
	"strings"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
)

var BaseURL, CORSOrigin string
var GZipLevel int
var CacheTTLSeconds int
var bodyLimitBytes int

func init() {
	// HTTP_BASE_URL: every gateway route hangs off this prefix
	BaseURL = NormalizeBaseURL(env.GetEnvStringOrDefault("HTTP_BASE_URL", "/api/whatsapp"))

	// HTTP_CORS_ORIGIN: default "*" (allow all)
	CORSOrigin = env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*")

	// HTTP_BODY_LIMIT_SIZE: default "8M", bulk sheets travel as multipart bodies
	bodyLimitBytes = env.GetEnvBytesOrDefault("HTTP_BODY_LIMIT_SIZE", 8*1024*1024)

	// HTTP_GZIP_LEVEL: default 1
	GZipLevel = env.GetEnvIntOrDefault("HTTP_GZIP_LEVEL", 1)

	// HTTP_CACHE_TTL_SECONDS: default 60, applied to static downloads only
	CacheTTLSeconds = env.GetEnvIntOrDefault("HTTP_CACHE_TTL_SECONDS", 60)
}

func BodyLimitBytes() int {
	return bodyLimitBytes
}

// NormalizeBaseURL returns "" for the root or "/prefix" without a trailing slash.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return ""
	}
	return "/" + raw
}
