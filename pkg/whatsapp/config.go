package whatsapp

import (
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
)

type Config struct {
	DatastoreType string
	DatastoreURI  string
	ProxyURL      string

	InitRetries    int
	InitRetryDelay time.Duration
	ReadyTimeout   time.Duration

	SendRetries       int
	SendRetryBackoff  time.Duration
	SendRatePerSecond float64
	SendBurst         int

	MessagesLimit   int
	AutoReply       bool
	AutoReplyFromMe bool
	QRTerminal      bool

	ConvertWebP   bool
	CompressImage bool
}

// LoadConfig reads the WHATSAPP_* keys, falling back to the documented defaults.
func LoadConfig() Config {
	return Config{
		DatastoreType: env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite3"),
		DatastoreURI:  env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", "file:whatsapp.db?_foreign_keys=on"),
		ProxyURL:      env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),

		InitRetries:    env.GetEnvIntOrDefault("WHATSAPP_INIT_RETRIES", 3),
		InitRetryDelay: env.GetEnvDurationOrDefault("WHATSAPP_INIT_RETRY_DELAY", 5*time.Second),
		ReadyTimeout:   env.GetEnvDurationOrDefault("WHATSAPP_READY_TIMEOUT", 30*time.Second),

		SendRetries:       env.GetEnvIntOrDefault("WHATSAPP_SEND_RETRIES", 3),
		SendRetryBackoff:  env.GetEnvDurationOrDefault("WHATSAPP_SEND_RETRY_BACKOFF", 2*time.Second),
		SendRatePerSecond: env.GetEnvFloatOrDefault("WHATSAPP_SEND_RATE_PER_SECOND", 1),
		SendBurst:         env.GetEnvIntOrDefault("WHATSAPP_SEND_BURST", 3),

		MessagesLimit:   env.GetEnvIntOrDefault("WHATSAPP_MESSAGES_LIMIT", 0),
		AutoReply:       env.GetEnvBoolOrDefault("WHATSAPP_AUTO_REPLY", true),
		AutoReplyFromMe: env.GetEnvBoolOrDefault("WHATSAPP_AUTO_REPLY_FROM_ME", false),
		QRTerminal:      env.GetEnvBoolOrDefault("WHATSAPP_QR_TERMINAL", true),

		ConvertWebP:   env.GetEnvBoolOrDefault("WHATSAPP_MEDIA_IMAGE_CONVERT_WEBP", false),
		CompressImage: env.GetEnvBoolOrDefault("WHATSAPP_MEDIA_IMAGE_COMPRESSION", false),
	}
}

func (c Config) withDefaults() Config {
	c.DatastoreType = normalizeDatastoreDriver(c.DatastoreType)
	c.DatastoreURI = normalizeDatastoreDSN(c.DatastoreType, c.DatastoreURI)
	if c.InitRetries <= 0 {
		c.InitRetries = 1
	}
	if c.SendRetries <= 0 {
		c.SendRetries = 1
	}
	if c.SendRatePerSecond <= 0 {
		c.SendRatePerSecond = 1
	}
	if c.SendBurst <= 0 {
		c.SendBurst = 1
	}
	return c
}

func normalizeDatastoreDriver(driver string) string {
	switch driver = strings.ToLower(strings.TrimSpace(driver)); driver {
	case "":
		return "sqlite3"
	case "sqlite":
		return "sqlite3"
	case "postgresql":
		return "postgres"
	default:
		return driver
	}
}

// normalizeDatastoreDSN forces the pgx simple query protocol.
func normalizeDatastoreDSN(driver string, dsn string) string {
	if driver != "pgx" {
		return dsn
	}
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}
