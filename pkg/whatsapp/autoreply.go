package whatsapp

import (
	"strings"
	"time"

	"github.com/forPelevin/gomoji"
)

var basicResponses = map[string]string{
	"hola":         "¡Hola! ¿Cómo estás?",
	"adiós":        "¡Adiós! Que tengas un buen día.",
	"¿cómo estás?": "Estoy bien, gracias por preguntar.",
	"gracias":      "De nada, ¡estoy aquí para ayudarte!",
}

const keywordTime = "hora"

func normalizeKeyword(body string) string {
	return strings.ToLower(strings.TrimSpace(gomoji.RemoveEmojis(body)))
}

// AutoReply returns the canned answer for body, if any. The time reply is
// rendered from now.
func AutoReply(body string, now time.Time) (string, bool) {
	if body == "!ping" {
		return "pong", true
	}
	key := normalizeKeyword(body)
	if key == keywordTime {
		return "La hora actual es " + now.Format("15:04:05") + ".", true
	}
	reply, ok := basicResponses[key]
	return reply, ok
}
