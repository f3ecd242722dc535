package whatsapp

import (
	"fmt"
	"strings"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
)

// Guard runs fn and recovers a panic. Panics mentioning "Protocol error" are
// logged and swallowed; anything else terminates the process with status 1.
func Guard(name string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		msg := fmt.Sprint(r)
		if strings.Contains(msg, "Protocol error") {
			log.Session("error").WithField("task", name).Warn("Protocol error ignored: " + msg)
			return
		}
		log.Session("error").WithField("task", name).Fatal("Unrecovered panic: " + msg)
	}()
	fn()
}

// Go is Guard on a new goroutine.
func Go(name string, fn func()) {
	go Guard(name, fn)
}
