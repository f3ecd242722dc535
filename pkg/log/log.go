package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

// Logger exposes the shared logrus instance for adapters.
func Logger() *logrus.Logger {
	return logger
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	fields := logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	}
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		fields["request_id"] = id
	}
	return logger.WithFields(fields)
}

// Op tags an entry with the gateway operation and a masked recipient.
func Op(op string, recipient string) *logrus.Entry {
	entry := logger.WithField("op", op)
	if recipient != "" {
		entry = entry.WithField("to", Mask(recipient))
	}
	return entry
}

// Session tags an entry with a client lifecycle event.
func Session(event string) *logrus.Entry {
	return logger.WithField("session_event", event)
}

// Mask hides the last four characters of a phone number or JID user.
func Mask(id string) string {
	if len(id) < 4 {
		return id
	}
	return id[0:len(id)-4] + "xxxx"
}
