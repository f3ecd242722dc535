package whatsapp

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/ring"
)

const (
	clientErrorLogSize   = 20
	clientConsoleLogSize = 100
)

// LogLine is one line written by the wrapped client.
type LogLine struct {
	Level     string `json:"level"`
	Module    string `json:"module"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// clientLogger routes whatsmeow's log output through logrus and keeps the
// most recent warnings and info lines for diagnostics.
type clientLogger struct {
	module  string
	entry   *logrus.Entry
	errors  *ring.Buffer[LogLine]
	console *ring.Buffer[LogLine]
}

var _ waLog.Logger = (*clientLogger)(nil)

func newClientLogger(module string, errors, console *ring.Buffer[LogLine]) *clientLogger {
	return &clientLogger{
		module:  module,
		entry:   log.Logger().WithField("module", module),
		errors:  errors,
		console: console,
	}
}

func (l *clientLogger) push(buf *ring.Buffer[LogLine], level string, msg string) {
	buf.Push(LogLine{
		Level:     level,
		Module:    l.module,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (l *clientLogger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.push(l.errors, "error", msg)
	l.entry.Error(msg)
}

func (l *clientLogger) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.push(l.errors, "warn", msg)
	l.entry.Warn(msg)
}

func (l *clientLogger) Infof(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.push(l.console, "info", msg)
	l.entry.Debug(msg)
}

func (l *clientLogger) Debugf(format string, args ...interface{}) {
	l.entry.Trace(fmt.Sprintf(format, args...))
}

func (l *clientLogger) Sub(module string) waLog.Logger {
	return newClientLogger(l.module+"/"+module, l.errors, l.console)
}
